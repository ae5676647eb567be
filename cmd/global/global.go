package global

import (
	"bytes"

	"github.com/mgutz/ansi"
	"github.com/tomlazar/table"
)

var (
	CfgFile string
	NoColor bool
	NoStyle bool
	Verbose bool
)

// TableConfig is the style used for all tables printed to the console
func TableConfig() *table.Config {
	return &table.Config{
		ShowIndex:       false,
		Color:           !NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	}
}

// RenderTable renders the given table using TableConfig
func RenderTable(t table.Table) (string, error) {
	var buf bytes.Buffer
	if err := t.WriteTable(&buf, TableConfig()); err != nil {
		return "", err
	}
	return buf.String(), nil
}
