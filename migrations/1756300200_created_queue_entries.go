package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("queue_entries")

		collection.Fields.Add(
			&core.TextField{Name: "event_id", Required: true},
			&core.TextField{Name: "user_id", Required: true},
			&core.NumberField{Name: "queue_rank", Required: true, OnlyInt: true},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"waiting", "entered", "expired", "completed"},
			},
			&core.DateField{Name: "entered_at"},
			&core.DateField{Name: "expires_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_queue_entries_event_user", true, "event_id, user_id", "")
		collection.AddIndex("idx_queue_entries_event_status", false, "event_id, status", "")
		collection.AddIndex("idx_queue_entries_expiry", false, "event_id, status, expires_at", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("queue_entries")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
