package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// This file contains the parsers for OpenWeatherMap responses. Each parser
// takes the raw response body and returns the domain type used by the rest
// of the application; nothing upstream-shaped leaks past this file.

type owmCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Humidity  int     `json:"humidity"`
	Pressure  int     `json:"pressure"`
}

type owmCurrentResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main owmMain `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int            `json:"visibility"`
	Weather    []owmCondition `json:"weather"`
	Dt         int64          `json:"dt"`
}

type owmForecastResponse struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []struct {
		Dt      int64          `json:"dt"`
		Main    owmMain        `json:"main"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
}

func ParseCurrentWeatherOWM(body io.Reader) (WeatherSnapshot, error) {
	var response owmCurrentResponse

	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return WeatherSnapshot{}, err
	}
	if len(response.Weather) == 0 {
		return WeatherSnapshot{}, fmt.Errorf("current weather response has no condition entries")
	}

	snapshot := WeatherSnapshot{
		CityName:    response.Name,
		CountryCode: response.Sys.Country,
		Coords: Coordinates{
			Latitude:  response.Coord.Lat,
			Longitude: response.Coord.Lon,
		},
		Temperature: response.Main.Temp,
		FeelsLike:   response.Main.FeelsLike,
		TempMin:     response.Main.TempMin,
		TempMax:     response.Main.TempMax,
		Humidity:    response.Main.Humidity,
		Pressure:    response.Main.Pressure,
		WindSpeed:   response.Wind.Speed,
		Visibility:  response.Visibility,
		Sunrise:     time.Unix(response.Sys.Sunrise, 0).UTC(),
		Sunset:      time.Unix(response.Sys.Sunset, 0).UTC(),
		ConditionID: response.Weather[0].ID,
		Condition:   response.Weather[0].Main,
		Description: response.Weather[0].Description,
		Icon:        response.Weather[0].Icon,
		FetchedAt:   time.Now().UTC(),
	}

	return snapshot, nil
}

func ParseForecastOWM(body io.Reader) (ForecastSnapshot, error) {
	var response owmForecastResponse

	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return ForecastSnapshot{}, err
	}

	forecast := ForecastSnapshot{
		CityName:  response.City.Name,
		Entries:   make([]ForecastEntry, 0, len(response.List)),
		FetchedAt: time.Now().UTC(),
	}
	for _, item := range response.List {
		entry := ForecastEntry{
			Timestamp:   time.Unix(item.Dt, 0).UTC(),
			Temperature: item.Main.Temp,
			FeelsLike:   item.Main.FeelsLike,
			TempMin:     item.Main.TempMin,
			TempMax:     item.Main.TempMax,
			Humidity:    item.Main.Humidity,
			Pressure:    item.Main.Pressure,
		}
		if len(item.Weather) > 0 {
			entry.Condition = item.Weather[0].Main
			entry.Description = item.Weather[0].Description
			entry.Icon = item.Weather[0].Icon
		}
		forecast.Entries = append(forecast.Entries, entry)
	}

	return forecast, nil
}

func ParseCitySuggestionsOWM(body io.Reader) ([]CitySuggestion, error) {
	var suggestions []CitySuggestion
	if err := json.NewDecoder(body).Decode(&suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}
