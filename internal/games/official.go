package games

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/buildctl/internal/addons"
)

type retailFile struct {
	file  string
	id    string
	title string
}

// Retail data files that identify an official campaign
var retailFiles = map[addons.Game][]retailFile{
	addons.GameDuke3D: {
		{"DUKE3D.GRP", "duke3d", "Duke Nukem 3D"},
		{"DUKEDC.GRP", "dukedc", "Duke It Out In D.C."},
		{"NWINTER.GRP", "nwinter", "Duke: Nuclear Winter"},
		{"VACATION.GRP", "vacation", "Duke Caribbean: Life's a Beach"},
	},
	addons.GameBlood: {
		{"BLOOD.RFF", "blood", "Blood"},
		{"CRYPTIC.INI", "cryptic", "Cryptic Passage"},
	},
	addons.GameWang: {
		{"SW.GRP", "sw", "Shadow Warrior"},
		{"WT.GRP", "wanton", "Wanton Destruction"},
		{"TD.GRP", "twindragon", "Twin Dragon"},
	},
	addons.GameRedneck: {
		{"REDNECK.GRP", "redneck", "Redneck Rampage"},
		{"RIDES.GRP", "rides", "Redneck Rampage: Rides Again"},
	},
	addons.GameFury:  {{"FURY.GRP", "fury", "Ion Fury"}},
	addons.GameNam:   {{"NAM.GRP", "nam", "NAM"}},
	addons.GameWW2GI: {{"WW2GI.GRP", "ww2gi", "World War II GI"}},
}

// Official finds retail campaigns in configured install directories
type Official struct {
	installDirs map[addons.Game]string
}

// NewOfficial creates a detector. installDirs maps a game to its retail
// install directory; games without an entry have no official campaigns.
func NewOfficial(installDirs map[addons.Game]string) *Official {
	return &Official{installDirs: installDirs}
}

// Campaigns returns the official campaigns present for game, in a fixed order
func (o *Official) Campaigns(game addons.Game) []*addons.Addon {
	dir := o.installDirs[game]
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	present := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			present[strings.ToUpper(e.Name())] = e.Name()
		}
	}

	var result []*addons.Addon
	for _, rf := range retailFiles[game] {
		name, ok := present[rf.file]
		if !ok {
			continue
		}
		result = append(result, &addons.Addon{
			Identity:   addons.Identity{ID: rf.id},
			Variant:    addons.VariantOfficialCampaign,
			Title:      rf.title,
			Game:       addons.SupportedGame{Game: game},
			Path:       filepath.Join(dir, name),
			IsUnpacked: true,
		})
	}
	return result
}
