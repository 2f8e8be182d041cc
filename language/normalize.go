// Package language maps free-form language labels to the canonical
// translation-model codes and detects the language of transcript text.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// DefaultCode is returned for any label that is not in the table.
const DefaultCode = "en_XX"

var codes = map[string]string{
	"arabic": "ar_AR", "ar": "ar_AR",
	"bulgarian": "bg_BG", "bg": "bg_BG",
	"german": "de_DE", "de": "de_DE",
	"modern greek": "el_GR", "greek": "el_GR", "el": "el_GR",
	"english": "en_XX", "en": "en_XX",
	"spanish": "es_XX", "es": "es_XX",
	"french": "fr_XX", "fr": "fr_XX",
	"hindi": "hi_IN", "hi": "hi_IN",
	"italian": "it_IT", "it": "it_IT",
	"japanese": "ja_XX", "ja": "ja_XX",
	"dutch": "nl_XX", "nl": "nl_XX",
	"polish": "pl_PL", "pl": "pl_PL",
	"portuguese": "pt_XX", "pt": "pt_XX",
	"russian": "ru_RU", "ru": "ru_RU",
	"swahili": "sw_KE", "sw": "sw_KE",
	"thai": "th_TH", "th": "th_TH",
	"turkish": "tr_TR", "tr": "tr_TR",
	"urdu": "ur_PK", "ur": "ur_PK",
	"vietnamese": "vi_VN", "vi": "vi_VN",
	"chinese": "zh_CN", "zh": "zh_CN",

	// canonical codes, lowercased
	"ar_ar": "ar_AR", "bg_bg": "bg_BG", "de_de": "de_DE", "el_gr": "el_GR",
	"en_xx": "en_XX", "es_xx": "es_XX", "fr_xx": "fr_XX", "hi_in": "hi_IN",
	"it_it": "it_IT", "ja_xx": "ja_XX", "nl_xx": "nl_XX", "pl_pl": "pl_PL",
	"pt_xx": "pt_XX", "ru_ru": "ru_RU", "sw_ke": "sw_KE", "th_th": "th_TH",
	"tr_tr": "tr_TR", "ur_pk": "ur_PK", "vi_vn": "vi_VN", "zh_cn": "zh_CN",
}

// Normalize converts a language name, two-letter code or canonical code to
// its canonical form. Matching is exact after trimming, lowercasing and
// replacing hyphens with underscores; anything else yields DefaultCode.
func Normalize(label string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), "-", "_")
	if code, ok := codes[key]; ok {
		return code
	}
	return DefaultCode
}

// Known reports whether label normalizes through the table rather than
// falling back to the default.
func Known(label string) bool {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), "-", "_")
	_, ok := codes[key]
	return ok
}

// Base returns the lowercased language part of a canonical code, so
// "en_XX" becomes "en".
func Base(code string) string {
	base, _, _ := strings.Cut(code, "_")
	return strings.ToLower(base)
}

// ValidateCanonical checks that code is one of the canonical codes, spelled
// exactly, with a base language x/text recognizes.
func ValidateCanonical(code string) error {
	if !Known(code) || Normalize(code) != code {
		return fmt.Errorf("%q is not a canonical language code", code)
	}
	if _, err := language.ParseBase(Base(code)); err != nil {
		return fmt.Errorf("%q has an unknown base language: %w", code, err)
	}
	return nil
}

// Table returns a copy of the lookup table.
func Table() map[string]string {
	out := make(map[string]string, len(codes))
	for k, v := range codes {
		out[k] = v
	}
	return out
}
