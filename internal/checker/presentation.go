package checker

import "strings"

// Presentation is the embed styling picked for a holiday.
type Presentation struct {
	Key      string
	Color    int
	ImageURL string
}

const (
	imageNewYear   = "https://images.unsplash.com/photo-1467810563316-b5476525c0f9?w=800"
	imageNational  = "https://images.unsplash.com/photo-1605649487212-47bdab064df7?w=800"
	imageDiwali    = "https://images.unsplash.com/photo-1578608712688-36b5be8823dc?w=800"
	imageHoli      = "https://images.unsplash.com/photo-1583221264828-8ff9f3a04925?w=800"
	imageChristmas = "https://images.unsplash.com/photo-1513885535751-8b9238bd345a?w=800"
	imageDefault   = "https://images.unsplash.com/photo-1514525253161-7a46d19cd819?w=800"
)

// Order matters: the first keyword contained in the name wins.
var presentations = []Presentation{
	{Key: "republic", Color: 0xFF9933, ImageURL: imageNational},
	{Key: "independence", Color: 0xFF9933, ImageURL: imageNational},
	{Key: "diwali", Color: 0xFFD700, ImageURL: imageDiwali},
	{Key: "holi", Color: 0xFF6347, ImageURL: imageHoli},
	{Key: "christmas", Color: 0xFF0000, ImageURL: imageChristmas},
	{Key: "eid", Color: 0x00CED1},
	{Key: "new year", Color: 0x00FF00, ImageURL: imageNewYear},
}

var defaultPresentation = Presentation{Key: "default", Color: 0x7B68EE, ImageURL: imageDefault}

// PickPresentation matches holidayName case-insensitively against the
// keyword table.
func PickPresentation(holidayName string) Presentation {
	name := strings.ToLower(holidayName)
	for _, p := range presentations {
		if strings.Contains(name, p.Key) {
			if p.ImageURL == "" {
				p.ImageURL = defaultPresentation.ImageURL
			}
			return p
		}
	}
	return defaultPresentation
}
