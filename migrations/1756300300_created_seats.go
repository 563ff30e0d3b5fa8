package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("seats")

		collection.Fields.Add(
			&core.TextField{Name: "event_id", Required: true},
			&core.TextField{Name: "code", Required: true, Max: 16},
			&core.TextField{Name: "grade", Max: 32},
			&core.NumberField{Name: "price", Required: true},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"available", "reserved", "sold"},
			},
			&core.NumberField{Name: "version", Required: true, OnlyInt: true},
			&core.TextField{Name: "reserved_by"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_seats_event_code", true, "event_id, grade, code", "")
		collection.AddIndex("idx_seats_event_status", false, "event_id, status", "")
		collection.AddIndex("idx_seats_reserved_by", false, "event_id, reserved_by", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("seats")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
