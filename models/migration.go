package models

import (
	"log"

	"github.com/mmdatafocus/adaudit_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&UsageType{}, &PathDefinition{}, &EmailTemplate{},
		&AdLogAnalysis{}, &ProcessedAdFile{}, &GidDiscrepancy{},
		&SystemGid{},
		&Operator{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
