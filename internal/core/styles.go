package core

import (
	"bytes"
	"log"
	"os"
	"text/template"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"

	"github.com/chess10kp/liz/internal/config"
)

var stylesTemplate = template.Must(template.New("styles").Parse(`
* {
    font-family: {{.FontFamily}};
    font-size: {{.FontSize}}px;
}

#launcher-window {
    background-color: {{.BackgroundColor}};
    color: {{.ForegroundColor}};
    border-radius: {{.BorderRadius}}px;
    border: 1px solid {{.BorderColor}};
}

#launcher-entry {
    background-color: {{.EntryBackground}};
    color: {{.ForegroundColor}};
    padding: 12px;
    border: none;
    border-bottom: 1px solid {{.BorderColor}};
}

#launcher-entry:focus {
    border-bottom: 1px solid {{.AccentColor}};
}

#launcher-counter {
    color: {{.AccentColor}};
    font-weight: bold;
}

#result-list {
    background-color: transparent;
}

#list-row {
    color: {{.ForegroundColor}};
    border-bottom: 1px solid {{.BorderColor}};
}

#list-row:hover {
    background-color: {{.ListRowHover}};
}

#list-row:selected {
    background-color: {{.ListRowSelected}};
    color: {{.BackgroundColor}};
}
`))

func renderStyles(styling config.StylingConfig) (string, error) {
	var buf bytes.Buffer
	if err := stylesTemplate.Execute(&buf, styling); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func SetupStyles(styling config.StylingConfig) {
	screen, err := gdk.ScreenGetDefault()
	if err != nil || screen == nil {
		log.Printf("Warning: Failed to get default screen: %v", err)
		return
	}

	css, err := renderStyles(styling)
	if err != nil {
		log.Printf("Warning: Failed to render styles: %v", err)
		return
	}

	provider, _ := gtk.CssProviderNew()
	if err := provider.LoadFromData(css); err != nil {
		log.Printf("Warning: Failed to load default styles: %v", err)
		return
	}

	gtk.AddProviderForScreen(screen, provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
}

func LoadCustomCSS(path string) {
	if path == "" {
		return
	}

	screen, err := gdk.ScreenGetDefault()
	if err != nil || screen == nil {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: Failed to read custom CSS %s: %v", path, err)
		return
	}

	provider, _ := gtk.CssProviderNew()
	if err := provider.LoadFromData(string(data)); err != nil {
		log.Printf("Warning: Failed to load custom CSS %s: %v", path, err)
		return
	}
	gtk.AddProviderForScreen(screen, provider, gtk.STYLE_PROVIDER_PRIORITY_USER)
}
