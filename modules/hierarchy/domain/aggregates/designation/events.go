package designation

import "github.com/google/uuid"

type CreatedEvent struct {
	TenantID  uuid.UUID
	RequestID string
	Result    Designation
}

type UpdatedEvent struct {
	TenantID  uuid.UUID
	RequestID string
	Patch     Patch
	Result    Designation
}

type DeletedEvent struct {
	TenantID  uuid.UUID
	RequestID string
	Result    Designation
}
