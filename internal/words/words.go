package words

import "math/rand"

// Pack is a themed category of secret words that can be enabled on its own
// or combined with other packs.
type Pack struct {
	ID     string
	Name   string
	Themes []string
}

var PackGeneral = Pack{
	ID:   "general",
	Name: "General",
	Themes: []string{
		"beach", "hospital", "airport", "school", "gym",
		"cinema", "restaurant", "supermarket", "zoo", "museum",
		"nightclub", "prison", "casino", "library", "farm",
	},
}

var PackEvents = Pack{
	ID:   "events",
	Name: "Events & Celebrations",
	Themes: []string{
		"wedding", "birthday", "funeral", "graduation", "job interview",
		"first date", "house party", "baby shower", "stag do", "hen party",
	},
}

var PackActivities = Pack{
	ID:   "activities",
	Name: "Activities",
	Themes: []string{
		"camping", "fishing", "cooking", "gardening", "skiing",
		"surfing", "yoga", "poker night", "karaoke", "barbecue",
		"road trip", "moving house", "dentist visit", "haircut", "hangover",
	},
}

var PackChristmas = Pack{
	ID:   "christmas",
	Name: "Christmas",
	Themes: []string{
		"christmas morning", "nativity", "carol singing", "midnight mass",
		"boxing day", "christmas dinner", "secret santa", "advent calendar",
		"christmas market", "pantomime", "office christmas party", "the grinch",
		"home alone", "elf on the shelf", "christmas jumper day",
	},
}

var PackChristian = Pack{
	ID:   "christian",
	Name: "Christianity & Faith",
	Themes: []string{
		"baptism", "communion", "confession", "sunday service", "bible study",
		"easter sunday", "good friday", "palm sunday", "the last supper",
		"garden of eden", "noahs ark", "the exodus", "david and goliath",
		"the prodigal son", "the good samaritan", "the resurrection",
	},
}

var PackQuirky = Pack{
	ID:   "quirky",
	Name: "Quirky & Unusual",
	Themes: []string{
		"alien invasion", "zombie apocalypse", "time travel", "haunted house",
		"desert island", "witness protection", "undercover spy", "escape room",
		"blind date disaster", "awkward silence", "food poisoning", "lost luggage",
		"flat tyre", "wrong funeral", "wardrobe malfunction", "photobomb",
	},
}

var AllPacks = []Pack{
	PackGeneral,
	PackEvents,
	PackActivities,
	PackChristmas,
	PackChristian,
	PackQuirky,
}

// ThemesFromPacks collects the themes of the packs with the given ids.
// A nil or empty id list means every pack; unknown ids are ignored.
func ThemesFromPacks(packIDs []string) []string {
	packs := AllPacks
	if len(packIDs) > 0 {
		wanted := make(map[string]bool, len(packIDs))
		for _, id := range packIDs {
			wanted[id] = true
		}
		packs = nil
		for _, p := range AllPacks {
			if wanted[p.ID] {
				packs = append(packs, p)
			}
		}
	}

	var themes []string
	for _, p := range packs {
		themes = append(themes, p.Themes...)
	}
	return themes
}

// RandomTheme draws one theme from the given packs using rng, so callers
// can seed it for deterministic tests. Returns "" when no pack matched.
func RandomTheme(rng *rand.Rand, packIDs []string) string {
	themes := ThemesFromPacks(packIDs)
	if len(themes) == 0 {
		return ""
	}
	return themes[rng.Intn(len(themes))]
}
