package models

import (
	"time"

	"github.com/dmitrijs2005/finsync/internal/models"
)

// Document is one stored record of a user's collection. Data is the JSON
// encoding of the record.
type Document struct {
	UserID     string
	Collection models.Collection
	ID         string
	Data       []byte
	UpdatedAt  time.Time
}
