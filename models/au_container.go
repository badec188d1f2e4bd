package models

import "time"

// AuContainer is an archival unit: a batch of deposits transmitted to
// the preservation network as one LOCKSS archival unit. At most one
// container is open at a time; the organize stage appends deposits to
// the open container until its aggregate size passes the configured
// maximum, then closes it. A closed container is immutable and is
// never reopened.
type AuContainer struct {
	// ID is a store-assigned sequence number.
	ID uint64 `json:"id"`

	// Open reports whether the organize stage may still append
	// deposits. Closing is the only transition and is irreversible.
	Open bool `json:"open"`

	// Size is the aggregate declared size in bytes of the member
	// deposits.
	Size int64 `json:"size"`

	// DepositUUIDs lists the member deposits in the order they were
	// appended.
	DepositUUIDs []string `json:"deposit_uuids"`

	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}

// NewAuContainer returns an empty open container. The store assigns
// the ID when the container is first saved.
func NewAuContainer() *AuContainer {
	return &AuContainer{
		Open:         true,
		DepositUUIDs: make([]string, 0),
		CreatedAt:    time.Now().UTC(),
	}
}

// AddDeposit appends a member deposit and adds its declared size to
// the container's aggregate size. Re-adding an existing member is a
// no-op, so a replayed organize run cannot double-count the size.
func (container *AuContainer) AddDeposit(deposit *Deposit) {
	for _, member := range container.DepositUUIDs {
		if member == deposit.UUID {
			return
		}
	}
	container.DepositUUIDs = append(container.DepositUUIDs, deposit.UUID)
	container.Size += deposit.Size
}

// Close marks the container closed. Calling Close on a closed
// container is a no-op; the original ClosedAt timestamp stands.
func (container *AuContainer) Close() {
	if !container.Open {
		return
	}
	container.Open = false
	now := time.Now().UTC()
	container.ClosedAt = &now
}
