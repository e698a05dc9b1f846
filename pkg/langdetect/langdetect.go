// Package langdetect walks a working tree and determines its primary
// language by byte share (§4.3).
package langdetect

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/reposcore/reposcore/pkg/constants"
	"github.com/reposcore/reposcore/pkg/logger"
	"github.com/reposcore/reposcore/pkg/model"
)

var log = logger.New("langdetect")

// extensionLanguage is the fixed extension -> language table.
var extensionLanguage = map[string]model.Language{
	".go":   model.LanguageGo,
	".rs":   model.LanguageRust,
	".java": model.LanguageJava,
	".ts":   model.LanguageTypeScript,
	".tsx":  model.LanguageTypeScript,
	".js":   model.LanguageJavaScript,
	".jsx":  model.LanguageJavaScript,
	".mjs":  model.LanguageJavaScript,
	".py":   model.LanguagePython,
}

var vendorDirSet = toSet(constants.VendorDirs)

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// Result is the outcome of a detection pass.
type Result struct {
	Primary      model.Language
	Distribution map[model.Language]float64
	Confidence   float64
}

// Detect walks root, tallying bytes per recognized extension, and picks
// the language with the largest byte share. Ties are broken by
// constants.LanguageTieBreakOrder. Never fails — an unrecognized tree
// yields model.LanguageUnknown with zero confidence.
func Detect(root string) (Result, error) {
	tally := make(map[model.Language]int64)
	var total int64

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk; unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if vendorDirSet[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		lang, ok := extensionLanguage[filepath.Ext(path)]
		if !ok {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		tally[lang] += info.Size()
		total += info.Size()
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if total == 0 {
		log.Printf("no recognized source bytes under %s", root)
		return Result{Primary: model.LanguageUnknown, Distribution: map[model.Language]float64{}}, nil
	}

	distribution := make(map[model.Language]float64, len(tally))
	for lang, bytes := range tally {
		distribution[lang] = float64(bytes) / float64(total)
	}

	primary := pickPrimary(distribution)
	log.Printf("detected primary language %s (confidence %.2f) under %s", primary, distribution[primary], root)
	return Result{Primary: primary, Distribution: distribution, Confidence: distribution[primary]}, nil
}

// pickPrimary returns the language with the largest share, breaking ties
// using the fixed ordering in constants.LanguageTieBreakOrder.
func pickPrimary(distribution map[model.Language]float64) model.Language {
	var best model.Language
	bestShare := -1.0
	var tiedAtBest []model.Language

	// Deterministic iteration: sort language names before comparing so a
	// map's random iteration order can never influence which language
	// wins when shares are exactly equal.
	langs := make([]string, 0, len(distribution))
	byName := make(map[string]model.Language, len(distribution))
	for l := range distribution {
		langs = append(langs, string(l))
		byName[string(l)] = l
	}
	sort.Strings(langs)

	for _, name := range langs {
		l := byName[name]
		share := distribution[l]
		if share > bestShare {
			bestShare = share
			best = l
			tiedAtBest = []model.Language{l}
		} else if share == bestShare {
			tiedAtBest = append(tiedAtBest, l)
		}
	}

	if len(tiedAtBest) <= 1 {
		return best
	}
	for _, ordered := range constants.LanguageTieBreakOrder {
		for _, l := range tiedAtBest {
			if string(l) == ordered {
				return l
			}
		}
	}
	return best
}
