package model

import "time"

type Priority string

const (
	PriorityBaixa   Priority = "Baixa"
	PriorityMedia   Priority = "Média"
	PriorityAlta    Priority = "Alta"
	PriorityUrgente Priority = "Urgente"
)

var AllowedPriorities = map[Priority]struct{}{
	PriorityBaixa:   {},
	PriorityMedia:   {},
	PriorityAlta:    {},
	PriorityUrgente: {},
}

type Column struct {
	ID           int64  `json:"column_id"`
	Name         string `json:"column_name"`
	Color        string `json:"color,omitempty"`
	DisplayOrder int    `json:"display_order"`
}

type Card struct {
	ID          int64      `json:"card_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ColumnID    int64      `json:"column_id"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	SubStatus   string     `json:"sub_status,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Board is the aggregate the console renders. CardsByColumn is keyed by
// Column.ID and every card's ColumnID must match the key of the slice that
// holds it.
type Board struct {
	Columns       []Column         `json:"columns"`
	CardsByColumn map[int64][]Card `json:"cards_by_column"`
}

type MovementType string

const (
	MovementCreated      MovementType = "Created"
	MovementColumnChange MovementType = "ColumnChange"
	MovementCompleted    MovementType = "Completed"
	MovementNote         MovementType = "Note"
)

type Movement struct {
	ID          int64        `json:"movement_id"`
	CardID      int64        `json:"card_id"`
	Subject     string       `json:"subject"`
	Description string       `json:"description,omitempty"`
	TimeSpent   *int         `json:"time_spent,omitempty"`
	LogDate     time.Time    `json:"log_date"`
	Type        MovementType `json:"movement_type"`
	Images      []Image      `json:"images,omitempty"`
}

type Tag struct {
	ID   int64  `json:"card_tag_id"`
	Name string `json:"tag_name"`
}

// Image is attached to either a card or a movement, discriminated by which
// ID field is populated.
type Image struct {
	CardImageID     *int64 `json:"card_image_id,omitempty"`
	MovementImageID *int64 `json:"movement_image_id,omitempty"`
	Path            string `json:"path"`
	FileName        string `json:"file_name,omitempty"`
}

// CardDetails is the lazily fetched per-card view. It can diverge from the
// board's lightweight Card list until the next full board load.
type CardDetails struct {
	Card
	Movements      []Movement `json:"movements"`
	Tags           []Tag      `json:"tags"`
	Assignees      []string   `json:"assignees"`
	Images         []Image    `json:"images"`
	TotalTimeSpent int        `json:"total_time_spent"`
}

// CardSuggestion holds server-side AI analysis of a card draft. Suggestions
// live only in memory until confirmed.
type CardSuggestion struct {
	CardID      int64    `json:"card_id"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Assignees   []string `json:"assignees,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	SubTasks    []string `json:"sub_tasks,omitempty"`
}

type Company struct {
	ID        int64     `json:"company_id"`
	Name      string    `json:"name"`
	TradeName string    `json:"trade_name,omitempty"`
	CNPJ      string    `json:"cnpj"`
	Status    string    `json:"status"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Establishment struct {
	ID        int64     `json:"establishment_id"`
	CompanyID int64     `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type,omitempty"`
	Category  string    `json:"category,omitempty"`
	IsActive  bool      `json:"is_active"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ITILEntry struct {
	ID         int64      `json:"entry_id"`
	Category   string     `json:"category"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	SLAMinutes int        `json:"sla_minutes"`
	OpenedAt   time.Time  `json:"opened_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

var AllowedITILCategories = map[string]struct{}{
	"Change":          {},
	"Incident":        {},
	"Service Request": {},
	"Operation Task":  {},
}

// Page is the paginated envelope every list endpoint returns.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

type SessionContext struct {
	UserID            int64  `json:"user_id"`
	UserEmail         string `json:"user_email"`
	CompanyID         int64  `json:"company_id,omitempty"`
	EstablishmentID   int64  `json:"establishment_id,omitempty"`
	Impersonating     bool   `json:"impersonating"`
	ImpersonatedEmail string `json:"impersonated_email,omitempty"`
}

type GeocodeResult struct {
	Street    string  `json:"street,omitempty"`
	District  string  `json:"district,omitempty"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	ZipCode   string  `json:"zip_code,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Event struct {
	Type      EventType `json:"type"`
	CardID    int64     `json:"card_id,omitempty"`
	ColumnID  int64     `json:"column_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
