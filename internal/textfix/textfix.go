// Package textfix repairs text that was stored after being decoded with the
// wrong character set, the classic case being UTF-8 bytes read as
// Windows-1252 ("SÃ£o JosÃ©" instead of "São José").
//
// Repair is applied where data enters the system and once more, best effort,
// before reports are rendered. Rows corrupted before that boundary existed
// are fixed once by the internal/db data migration using LegacyRepair. If new
// corrupted rows keep showing up, the producer is decoding with the wrong
// charset and should be fixed there.
package textfix

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// maxPasses bounds re-decoding for text that went through the bad round trip twice.
const maxPasses = 2

// Repair reverses a UTF-8 -> Windows-1252 mis-decoding. Characters that
// Windows-1252 cannot represent split the text into runs that are repaired
// separately. A run that does not look mis-decoded, or that would not turn
// into valid UTF-8, is kept as is.
func Repair(s string) string {
	for i := 0; i < maxPasses; i++ {
		fixed, ok := redecode(s)
		if !ok {
			break
		}
		s = fixed
	}
	return s
}

func redecode(s string) (string, bool) {
	// Every two-byte UTF-8 sequence for Latin-1 letters starts with 0xC2 or
	// 0xC3, which Windows-1252 shows as Â and Ã.
	if !strings.ContainsAny(s, "ÃÂ") {
		return s, false
	}

	var out strings.Builder
	out.Grow(len(s))
	changed := false
	start := 0
	run := make([]byte, 0, len(s))
	flush := func(end int) {
		if src := s[start:end]; utf8.Valid(run) && string(run) != src {
			out.Write(run)
			changed = true
		} else {
			out.WriteString(src)
		}
		run = run[:0]
	}

	for i, r := range s {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			run = append(run, b)
			continue
		}
		flush(i)
		_, size := utf8.DecodeRuneInString(s[i:])
		out.WriteString(s[i : i+size])
		start = i + size
	}
	flush(len(s))

	if !changed {
		return s, false
	}
	return out.String(), true
}

// RepairAll applies Repair in place to every non-nil field.
func RepairAll(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = Repair(*f)
		}
	}
}

// legacyWords are values seen in old imports where the original byte was
// lost entirely and replaced with U+FFFD. They cannot be re-decoded.
var legacyWords = strings.NewReplacer(
	"COL�NIA", "COLÔNIA",
	"IP�S", "IPÊS",
	"C�LIO", "CÉLIO",
	"TAUBAT�", "TAUBATÉ",
	"JACARE�", "JACAREÍ",
	"COMERCI�RIOS", "COMERCIÁRIOS",
	"GON�ALO", "GONÇALO",
	"CA�APAVA", "CAÇAPAVA",
	"ISM�NIA", "ISMÊNIA",
	"J�LIA", "JÚLIA",
	"EUCAL�PTOS", "EUCALIPTOS",
	"JOS�", "JOSÉ",
	"S�O", "SÃO",
	"S�telite", "Satélite",
	"Magalh�es", "Magalhães",
	"Tubar�o", "Tubarão",
	"S�o", "São",
)

// LegacyRepair is Repair plus the fixed substitutions for values that lost
// their original bytes. It is meant for the historical cleanup migration only.
func LegacyRepair(s string) string {
	return legacyWords.Replace(Repair(s))
}
