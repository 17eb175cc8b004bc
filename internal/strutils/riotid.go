package strutils

import (
	"fmt"
	"strings"
)

const RIOT_ID_SEPARATOR = "#"

// Splits a riot ID of the form "username#tag" into its components.
// An ID without a separator is treated as a bare username with an empty tag.
func ParseRiotID(riotID string) (string, string, error) {
	if riotID == "" {
		return "", "", fmt.Errorf("riot id is empty")
	}

	username, tag, found := strings.Cut(riotID, RIOT_ID_SEPARATOR)
	if !found {
		return riotID, "", nil
	}
	if username == "" {
		return "", "", fmt.Errorf("riot id has empty username. input: '%s'", riotID)
	}
	if strings.Contains(tag, RIOT_ID_SEPARATOR) {
		return "", "", fmt.Errorf("riot id has multiple separators. input: '%s'", riotID)
	}

	return username, tag, nil
}

// URL-encodes a riot ID for use in tracker.gg URL paths
func EncodeRiotID(riotID string) string {
	return strings.ReplaceAll(riotID, RIOT_ID_SEPARATOR, "%23")
}

func RiotIDIsValid(riotID string) bool {
	_, _, err := ParseRiotID(riotID)
	return err == nil
}
