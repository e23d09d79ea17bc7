package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ids are assigned application-side so the same models run on the server's
// postgres and on sqlite in tests.

func ensure(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (t *Tenant) BeforeCreate(*gorm.DB) error          { ensure(&t.ID); return nil }
func (s *Store) BeforeCreate(*gorm.DB) error           { ensure(&s.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error         { ensure(&p.ID); return nil }
func (v *ProductVariant) BeforeCreate(*gorm.DB) error  { ensure(&v.ID); return nil }
func (c *Customer) BeforeCreate(*gorm.DB) error        { ensure(&c.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error           { ensure(&o.ID); return nil }
func (l *OrderLine) BeforeCreate(*gorm.DB) error       { ensure(&l.ID); return nil }
func (p *Payment) BeforeCreate(*gorm.DB) error         { ensure(&p.ID); return nil }
func (r *InventoryRecord) BeforeCreate(*gorm.DB) error { ensure(&r.ID); return nil }
func (e *InventoryLedgerEntry) BeforeCreate(*gorm.DB) error { ensure(&e.ID); return nil }
func (e *LoyaltyLedgerEntry) BeforeCreate(*gorm.DB) error   { ensure(&e.ID); return nil }
func (e *MutationLogEntry) BeforeCreate(*gorm.DB) error     { ensure(&e.ID); return nil }
