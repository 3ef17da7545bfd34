package textfix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garnizeh/taxi/internal/textfix"
)

func TestRepair(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase accents", "SÃ£o JosÃ© dos Campos", "São José dos Campos"},
		{"cedilla", "ConceiÃ§Ã£o", "Conceição"},
		{"uppercase cedilla", "GONÃ‡ALO", "GONÇALO"},
		{"double encoded", "SÃƒÂ£o", "São"},
		{"already correct", "São José", "São José"},
		{"correct uppercase with tilde", "AÇÃO", "AÇÃO"},
		{"plain ascii", "Carro 1", "Carro 1"},
		{"empty", "", ""},
		{"arrow outside windows-1252", "SÃ£o → Centro", "São → Centro"},
		{"emoji between runs", "JoÃ£o 🚕 TaubatÃ©", "João 🚕 Taubaté"},
		{"invalid byte kept", "SÃ£o\xff", "São\xff"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, textfix.Repair(tc.in))
		})
	}
}

func TestRepairAll(t *testing.T) {
	name := "JoÃ£o"
	city := "TaubatÃ©"
	textfix.RepairAll(&name, nil, &city)

	assert.Equal(t, "João", name)
	assert.Equal(t, "Taubaté", city)
}

func TestLegacyRepair(t *testing.T) {
	assert.Equal(t, "PALMEIRAS DE SÃO JOSÉ", textfix.LegacyRepair("PALMEIRAS DE S�O JOS�"))
	assert.Equal(t, "Vila São Geraldo", textfix.LegacyRepair("Vila S�o Geraldo"))
	assert.Equal(t, "Jd Satélite", textfix.LegacyRepair("Jd S�telite"))
	// re-decoding still applies
	assert.Equal(t, "Jacareí", textfix.LegacyRepair("JacareÃ\u00ad"))
}
