package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Bright", "Bold", "Sunny", "Vivid", "Clever",
	"Lucky", "Prime", "Quiet", "Rapid", "Crisp",
	"Fresh", "Golden", "Neon", "Urban", "Coastal",
}

var nouns = []string{
	"Banner", "Billboard", "Poster", "Marquee", "Signpost",
	"Flyer", "Pennant", "Placard", "Beacon", "Canvas",
	"Column", "Kiosk", "Ribbon", "Spotlight", "Storefront",
}

// GenerateNickname returns a display name like "Vivid-Marquee-0427" for
// accounts that never picked one
func GenerateNickname() (string, error) {
	adj, err := pick(adjectives)
	if err != nil {
		return "", err
	}
	noun, err := pick(nouns)
	if err != nil {
		return "", err
	}

	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate nickname suffix: %w", err)
	}

	return fmt.Sprintf("%s-%s-%04d", adj, noun, suffix.Int64()), nil
}

func pick(words []string) (string, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", fmt.Errorf("failed to pick nickname word: %w", err)
	}
	return words[idx.Int64()], nil
}
