package models

import "github.com/google/uuid"

// ensureID assigns primary keys client-side. The gorm tags carry no
// gen_random_uuid() default so the same models migrate on sqlite; postgres
// keeps the default in the SQL migrations.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
