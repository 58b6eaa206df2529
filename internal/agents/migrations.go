package agents

import (
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/migrate"
)

// Migrations returns the agents schema history.
func Migrations() []migrate.Migration {
	return []migrate.Migration{
		{
			Version: 1,
			Name:    "baseline",
			Apply:   func(doc docstore.Document) error { return nil },
		},
	}
}
