package schemas

import "time"

// User is created and owned by the wider application; this core only reads it.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Domain string `json:"domain"`
}

// Subgraph is a named, user-scoped partition of a knowledge graph. UserID
// never changes after creation.
type Subgraph struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubgraphCreate is the payload for POST /kg/subgraph.
type SubgraphCreate struct {
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SubgraphUpdate is the payload for PUT /kg/subgraph/{id}.
type SubgraphUpdate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
