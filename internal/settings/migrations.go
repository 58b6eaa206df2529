package settings

import (
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/migrate"
)

// Migrations returns the settings schema history. Shipped steps are frozen;
// new steps append with the next version.
func Migrations() []migrate.Migration {
	return []migrate.Migration{
		{
			Version: 1,
			Name:    "mark existing installs as set up",
			// Stores that predate versioning belong to users who already
			// went through setup; only fresh stores should see the wizard.
			Apply: func(doc docstore.Document) error {
				if !doc.Has("firstRun") {
					return doc.Set("firstRun", false)
				}
				return nil
			},
		},
		{
			Version: 2,
			Name:    "rename endpoint to localEndpoint",
			Apply: func(doc docstore.Document) error {
				v, ok := doc.Get("endpoint")
				if !ok {
					return nil
				}
				if err := doc.Set("localEndpoint", v); err != nil {
					return err
				}
				doc.Delete("endpoint")
				return nil
			},
		},
		{
			Version: 3,
			Name:    "apiKey scalar to per-provider map",
			Apply: func(doc docstore.Document) error {
				v, hadScalar := doc.Get("apiKey")
				if !hadScalar && doc.Has("apiKeys") {
					return nil
				}

				keys := map[string]any{}
				if s, ok := v.(string); ok && s != "" {
					provider := DefaultProvider
					if p, ok := doc.Get("provider"); ok {
						if ps, ok := p.(string); ok && ps != "" {
							provider = ps
						}
					}
					keys[provider] = s
				}
				doc.Delete("apiKey")
				return doc.Set("apiKeys", keys)
			},
		},
	}
}
