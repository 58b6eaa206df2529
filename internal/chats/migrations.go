package chats

import (
	"github.com/dmitrijs2005/chatkeeper/internal/docstore"
	"github.com/dmitrijs2005/chatkeeper/internal/migrate"
)

// Migrations returns the chats schema history.
func Migrations() []migrate.Migration {
	return []migrate.Migration{
		{
			Version: 1,
			Name:    "baseline",
			Apply:   func(doc docstore.Document) error { return nil },
		},
		{
			Version: 2,
			Name:    "add starred flag",
			Apply: func(doc docstore.Document) error {
				raw, ok := doc.Get(chatsKey)
				if !ok {
					return nil
				}
				list, ok := raw.([]any)
				if !ok {
					return nil
				}
				for _, item := range list {
					chat, ok := item.(map[string]any)
					if !ok {
						continue
					}
					if _, has := chat["starred"]; !has {
						chat["starred"] = false
					}
				}
				return nil
			},
		},
	}
}
