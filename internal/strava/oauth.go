package strava

import (
	"golang.org/x/oauth2"
)

const (
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scopes is a single entry because Strava expects them comma separated
var Scopes = []string{"read,activity:read_all"}

// OAuthConfig builds the oauth2 config for the Strava app credentials
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      Scopes,
	}
}

// AthleteID reads the athlete id Strava embeds in the token response
func AthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}
