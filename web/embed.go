// Package web holds the page templates and static assets, embedded in the binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/Tsedenia-Nega/Appointment-management/internal/models"
	"github.com/Tsedenia-Nega/Appointment-management/internal/timeutil"
	"github.com/gofiber/template/html/v2"
)

//go:embed templates static
var assets embed.FS

// Static returns the static asset tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewEngine returns the view engine. An empty dir serves the embedded
// templates; a directory path loads templates from disk and reloads them on
// every render, which is meant for development.
func NewEngine(dir string) *html.Engine {
	var engine *html.Engine
	if dir == "" {
		sub, err := fs.Sub(assets, "templates")
		if err != nil {
			panic(err)
		}
		engine = html.NewFileSystem(http.FS(sub), ".html")
	} else {
		engine = html.New(dir, ".html")
		engine.Reload(true)
	}

	for name, fn := range Funcs() {
		engine.AddFunc(name, fn)
	}
	return engine
}

// Funcs are the template helpers available to every page.
func Funcs() map[string]interface{} {
	return map[string]interface{}{
		"time12": timeutil.Format12,
		"label":  models.DisplayName,
		"has": func(id *models.Identity, key string) bool {
			return id.Has(models.Permission(key))
		},
		"hasPerm": func(set models.PermissionSet, p models.Permission) bool {
			return set.Has(p)
		},
		"contains": func(list []string, v string) bool {
			for _, s := range list {
				if strings.EqualFold(s, v) {
					return true
				}
			}
			return false
		},
		"add":     func(a, b int) int { return a + b },
		"hours":   func() []string { return timeutil.Hours },
		"minutes": func() []string { return timeutil.Minutes },
		"periods": func() []string { return timeutil.Periods },
		"dict": func(kv ...interface{}) map[string]interface{} {
			m := make(map[string]interface{}, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				if k, ok := kv[i].(string); ok {
					m[k] = kv[i+1]
				}
			}
			return m
		},
	}
}
