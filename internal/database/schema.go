package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// TableStatus reports whether one persistent model's table exists.
type TableStatus struct {
	Table  string
	Exists bool
}

// SchemaStatus lists every persistent table and whether it is present.
type SchemaStatus struct {
	Driver  string
	Tables  []TableStatus
	Missing int
}

// GetSchemaStatus inspects the live schema for PersistentModels.
func GetSchemaStatus(ctx context.Context, db *gorm.DB) (*SchemaStatus, error) {
	tx := db.WithContext(ctx)
	status := &SchemaStatus{Driver: db.Dialector.Name()}

	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: tx}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		exists := tx.Migrator().HasTable(model)
		if !exists {
			status.Missing++
		}
		status.Tables = append(status.Tables, TableStatus{Table: stmt.Schema.Table, Exists: exists})
	}
	return status, nil
}
