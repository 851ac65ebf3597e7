package handlers

import (
	"embed"
	"html/template"
	"math"
	"strconv"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"won":     formatWon,
		"seconds": func(d time.Duration) int { return int(math.Ceil(d.Seconds())) },
		"millis":  func(d time.Duration) int64 { return d.Milliseconds() },
	}).ParseFS(templateFS, "templates/*.tmpl"))
}

// formatWon renders an amount with thousands separators, e.g. 4,500원.
func formatWon(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := amount < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out) + "원"
	}
	return string(out) + "원"
}
