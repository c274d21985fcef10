package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// thingName renders an item, clothing or outfit id for prose: the authored
// name when there is one, otherwise the id with underscores spaced out.
func (rt *Runtime) thingName(id string) string {
	if it := rt.g.ItemByID(id); it != nil && it.Name != "" {
		return it.Name
	}
	if ci := rt.g.ClothingByID(id); ci != nil && ci.Name != "" {
		return ci.Name
	}
	if o := rt.g.OutfitByID(id); o != nil && o.Name != "" {
		return o.Name
	}
	return strings.ReplaceAll(id, "_", " ")
}

// charName renders a character id as a proper name.
func (rt *Runtime) charName(id string) string {
	if c := rt.g.CharacterByID(id); c != nil && c.Name != "" {
		return c.Name
	}
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

// locationName renders a location id as a display name.
func (rt *Runtime) locationName(id string) string {
	if l := rt.g.LocationByID(id); l != nil && l.Name != "" {
		return l.Name
	}
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

// zoneName renders a zone id as a display name.
func (rt *Runtime) zoneName(id string) string {
	if z := rt.g.ZoneByID(id); z != nil && z.Name != "" {
		return z.Name
	}
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}
