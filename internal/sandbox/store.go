package sandbox

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

// Store is the sandbox's SQLite-backed state. It emulates just enough of the
// production backend for development and black-box tests.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS columns (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  color TEXT NOT NULL,
  display_order INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  column_id INTEGER NOT NULL,
  priority TEXT NOT NULL,
  due_date TEXT,
  sub_status TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT 'active',
  position INTEGER NOT NULL,
  assignees TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS movements (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  card_id INTEGER NOT NULL,
  subject TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  time_spent INTEGER,
  log_date TEXT NOT NULL,
  movement_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  card_id INTEGER NOT NULL,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  card_id INTEGER,
  movement_id INTEGER,
  path TEXT NOT NULL,
  file_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS companies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  trade_name TEXT NOT NULL DEFAULT '',
  cnpj TEXT NOT NULL,
  status TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS establishments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company_id INTEGER NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS itil_entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  category TEXT NOT NULL,
  title TEXT NOT NULL,
  status TEXT NOT NULL,
  sla_minutes INTEGER NOT NULL,
  opened_at TEXT NOT NULL,
  resolved_at TEXT
);
`)
	if err != nil {
		return err
	}
	return s.seedColumns()
}

var defaultColumns = []model.Column{
	{ID: 1, Name: "A Fazer", Color: "#64748b", DisplayOrder: 1},
	{ID: 2, Name: "Em Andamento", Color: "#3b82f6", DisplayOrder: 2},
	{ID: 3, Name: "Aguardando Cliente", Color: "#f59e0b", DisplayOrder: 3},
	{ID: 4, Name: "Concluído", Color: "#22c55e", DisplayOrder: 4},
}

func (s *Store) seedColumns() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM columns`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, column := range defaultColumns {
		_, err := s.db.Exec(`INSERT INTO columns (id, name, color, display_order) VALUES (?, ?, ?, ?)`,
			column.ID, column.Name, column.Color, column.DisplayOrder)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Columns() ([]model.Column, error) {
	rows, err := s.db.Query(`SELECT id, name, color, display_order FROM columns ORDER BY display_order ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make([]model.Column, 0)
	for rows.Next() {
		var c model.Column
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.DisplayOrder); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (s *Store) lastColumnID() (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM columns ORDER BY display_order DESC LIMIT 1`).Scan(&id)
	return id, err
}

func (s *Store) hasColumn(columnID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM columns WHERE id = ?`, columnID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func scanCard(scanner interface{ Scan(...any) error }) (model.Card, error) {
	var (
		c       model.Card
		due     sql.NullString
		created string
	)
	if err := scanner.Scan(&c.ID, &c.Title, &c.Description, &c.ColumnID, &c.Priority, &due, &c.SubStatus, &created); err != nil {
		return model.Card{}, err
	}
	if due.Valid && due.String != "" {
		parsed, err := time.Parse(time.RFC3339, due.String)
		if err != nil {
			return model.Card{}, err
		}
		c.DueDate = &parsed
	}
	parsed, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return model.Card{}, err
	}
	c.CreatedAt = parsed
	return c, nil
}

const cardFields = `id, title, description, column_id, priority, due_date, sub_status, created_at`

// errAlreadyConfirmed rejects a second confirm on a card that already left
// the proposed state.
var errAlreadyConfirmed = errors.New("card is already confirmed")

// Board assembles the full aggregate. Proposed stubs stay off the board
// until confirmed.
func (s *Store) Board() (model.Board, error) {
	columns, err := s.Columns()
	if err != nil {
		return model.Board{}, err
	}
	board := model.Board{Columns: columns, CardsByColumn: make(map[int64][]model.Card, len(columns))}
	for _, column := range columns {
		board.CardsByColumn[column.ID] = []model.Card{}
	}

	rows, err := s.db.Query(`SELECT ` + cardFields + ` FROM cards WHERE state != 'proposed' ORDER BY column_id, position ASC`)
	if err != nil {
		return model.Board{}, err
	}
	defer rows.Close()

	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return model.Board{}, err
		}
		board.CardsByColumn[card.ColumnID] = append(board.CardsByColumn[card.ColumnID], card)
	}
	return board, rows.Err()
}

func (s *Store) nextPosition(columnID int64) (int, error) {
	var position sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(position) FROM cards WHERE column_id = ? AND state != 'proposed'`, columnID).Scan(&position)
	if err != nil {
		return 0, err
	}
	if !position.Valid {
		return 0, nil
	}
	return int(position.Int64) + 1, nil
}

// CreateProposedCard inserts the stub the AI-assisted create flow leaves
// behind until the operator confirms it.
func (s *Store) CreateProposedCard(title, description string, columnID int64, priority model.Priority, dueDate *time.Time) (model.Card, error) {
	ok, err := s.hasColumn(columnID)
	if err != nil {
		return model.Card{}, err
	}
	if !ok {
		return model.Card{}, fmt.Errorf("column %d not found: %w", columnID, os.ErrNotExist)
	}
	if priority == "" {
		priority = model.PriorityMedia
	}

	now := time.Now().UTC()
	var due any
	if dueDate != nil {
		due = dueDate.UTC().Format(time.RFC3339)
	}
	result, err := s.db.Exec(`
INSERT INTO cards (title, description, column_id, priority, due_date, state, position, created_at)
VALUES (?, ?, ?, ?, ?, 'proposed', 0, ?)`,
		title, description, columnID, string(priority), due, now.Format(time.RFC3339))
	if err != nil {
		return model.Card{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Card{}, err
	}
	return s.GetCard(id)
}

// ConfirmCard applies validated data to a proposed stub and activates it.
func (s *Store) ConfirmCard(cardID int64, title, description string, priority model.Priority, assignees, tags []string) (model.Card, error) {
	card, err := s.GetCard(cardID)
	if err != nil {
		return model.Card{}, err
	}
	position, err := s.nextPosition(card.ColumnID)
	if err != nil {
		return model.Card{}, err
	}
	assigneesJSON, err := json.Marshal(assignees)
	if err != nil {
		return model.Card{}, err
	}
	if title == "" {
		title = card.Title
	}
	if priority == "" {
		priority = card.Priority
	}

	tx, err := s.db.Begin()
	if err != nil {
		return model.Card{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
UPDATE cards SET title = ?, description = ?, priority = ?, assignees = ?, state = 'active', position = ?
WHERE id = ? AND state = 'proposed'`,
		title, description, string(priority), string(assigneesJSON), position, cardID)
	if err != nil {
		return model.Card{}, err
	}
	if affected, err := res.RowsAffected(); err != nil {
		return model.Card{}, err
	} else if affected == 0 {
		return model.Card{}, fmt.Errorf("card %d: %w", cardID, errAlreadyConfirmed)
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO tags (card_id, name) VALUES (?, ?)`, cardID, strings.TrimSpace(tag)); err != nil {
			return model.Card{}, err
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`INSERT INTO movements (card_id, subject, log_date, movement_type) VALUES (?, ?, ?, ?)`,
		cardID, "Card criado", now, string(model.MovementCreated))
	if err != nil {
		return model.Card{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Card{}, err
	}
	return s.GetCard(cardID)
}

func (s *Store) GetCard(cardID int64) (model.Card, error) {
	row := s.db.QueryRow(`SELECT `+cardFields+` FROM cards WHERE id = ?`, cardID)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Card{}, fmt.Errorf("card %d: %w", cardID, os.ErrNotExist)
	}
	return card, err
}

func (s *Store) GetCardDetails(cardID int64) (model.CardDetails, error) {
	card, err := s.GetCard(cardID)
	if err != nil {
		return model.CardDetails{}, err
	}
	details := model.CardDetails{
		Card:      card,
		Movements: []model.Movement{},
		Tags:      []model.Tag{},
		Assignees: []string{},
		Images:    []model.Image{},
	}

	var assigneesJSON string
	if err := s.db.QueryRow(`SELECT assignees FROM cards WHERE id = ?`, cardID).Scan(&assigneesJSON); err != nil {
		return model.CardDetails{}, err
	}
	if err := json.Unmarshal([]byte(assigneesJSON), &details.Assignees); err != nil {
		return model.CardDetails{}, err
	}
	if details.Assignees == nil {
		details.Assignees = []string{}
	}

	movements, err := s.Movements(cardID)
	if err != nil {
		return model.CardDetails{}, err
	}
	details.Movements = movements
	for _, movement := range movements {
		if movement.TimeSpent != nil {
			details.TotalTimeSpent += *movement.TimeSpent
		}
	}

	tagRows, err := s.db.Query(`SELECT id, name FROM tags WHERE card_id = ? ORDER BY id ASC`, cardID)
	if err != nil {
		return model.CardDetails{}, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tag model.Tag
		if err := tagRows.Scan(&tag.ID, &tag.Name); err != nil {
			return model.CardDetails{}, err
		}
		details.Tags = append(details.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return model.CardDetails{}, err
	}

	imageRows, err := s.db.Query(`SELECT id, card_id, movement_id, path, file_name FROM images WHERE card_id = ? ORDER BY id ASC`, cardID)
	if err != nil {
		return model.CardDetails{}, err
	}
	defer imageRows.Close()
	for imageRows.Next() {
		image, err := scanImage(imageRows)
		if err != nil {
			return model.CardDetails{}, err
		}
		details.Images = append(details.Images, image)
	}
	return details, imageRows.Err()
}

func scanImage(scanner interface{ Scan(...any) error }) (model.Image, error) {
	var (
		image      model.Image
		id         int64
		cardID     sql.NullInt64
		movementID sql.NullInt64
	)
	if err := scanner.Scan(&id, &cardID, &movementID, &image.Path, &image.FileName); err != nil {
		return model.Image{}, err
	}
	if cardID.Valid {
		owner := id
		image.CardImageID = &owner
	} else if movementID.Valid {
		owner := id
		image.MovementImageID = &owner
	}
	return image, nil
}

func (s *Store) Movements(cardID int64) ([]model.Movement, error) {
	rows, err := s.db.Query(`
SELECT id, card_id, subject, description, time_spent, log_date, movement_type
FROM movements WHERE card_id = ? ORDER BY log_date ASC, id ASC`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]model.Movement, 0)
	for rows.Next() {
		var (
			m         model.Movement
			timeSpent sql.NullInt64
			logDate   string
		)
		if err := rows.Scan(&m.ID, &m.CardID, &m.Subject, &m.Description, &timeSpent, &logDate, &m.Type); err != nil {
			return nil, err
		}
		if timeSpent.Valid {
			spent := int(timeSpent.Int64)
			m.TimeSpent = &spent
		}
		parsed, err := time.Parse(time.RFC3339, logDate)
		if err != nil {
			return nil, err
		}
		m.LogDate = parsed
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *Store) UpdateCard(cardID int64, title, description, subStatus *string, priority *model.Priority, dueDate *string) (model.Card, error) {
	card, err := s.GetCard(cardID)
	if err != nil {
		return model.Card{}, err
	}
	newTitle := card.Title
	if title != nil {
		newTitle = *title
	}
	newDescription := card.Description
	if description != nil {
		newDescription = *description
	}
	newSubStatus := card.SubStatus
	if subStatus != nil {
		newSubStatus = *subStatus
	}
	newPriority := card.Priority
	if priority != nil {
		newPriority = *priority
	}
	var newDue any
	if card.DueDate != nil {
		newDue = card.DueDate.UTC().Format(time.RFC3339)
	}
	if dueDate != nil {
		if *dueDate == "" {
			newDue = nil
		} else {
			newDue = *dueDate
		}
	}

	_, err = s.db.Exec(`UPDATE cards SET title = ?, description = ?, sub_status = ?, priority = ?, due_date = ? WHERE id = ?`,
		newTitle, newDescription, newSubStatus, string(newPriority), newDue, cardID)
	if err != nil {
		return model.Card{}, err
	}
	return s.GetCard(cardID)
}

// MoveCard reassigns the column and rewrites positions in both affected
// columns inside one transaction.
func (s *Store) MoveCard(cardID, toColumnID int64, position *int) (model.Card, error) {
	card, err := s.GetCard(cardID)
	if err != nil {
		return model.Card{}, err
	}
	ok, err := s.hasColumn(toColumnID)
	if err != nil {
		return model.Card{}, err
	}
	if !ok {
		return model.Card{}, fmt.Errorf("column %d not found: %w", toColumnID, os.ErrNotExist)
	}

	ordered, err := s.columnCardIDs(toColumnID)
	if err != nil {
		return model.Card{}, err
	}
	without := make([]int64, 0, len(ordered))
	for _, id := range ordered {
		if id != cardID {
			without = append(without, id)
		}
	}
	index := len(without)
	if position != nil {
		index = *position
	}
	if index < 0 {
		index = 0
	}
	if index > len(without) {
		index = len(without)
	}
	reordered := append(without[:index], append([]int64{cardID}, without[index:]...)...)

	tx, err := s.db.Begin()
	if err != nil {
		return model.Card{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE cards SET column_id = ? WHERE id = ?`, toColumnID, cardID); err != nil {
		return model.Card{}, err
	}
	for i, id := range reordered {
		if _, err := tx.Exec(`UPDATE cards SET position = ? WHERE id = ?`, i, id); err != nil {
			return model.Card{}, err
		}
	}
	if card.ColumnID != toColumnID {
		if err := reindexColumnTx(tx, card.ColumnID, cardID); err != nil {
			return model.Card{}, err
		}
		now := time.Now().UTC().Format(time.RFC3339)
		_, err = tx.Exec(`INSERT INTO movements (card_id, subject, description, log_date, movement_type) VALUES (?, ?, ?, ?, ?)`,
			cardID, "Card movido", fmt.Sprintf("coluna %d -> %d", card.ColumnID, toColumnID), now, string(model.MovementColumnChange))
		if err != nil {
			return model.Card{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Card{}, err
	}
	return s.GetCard(cardID)
}

func (s *Store) columnCardIDs(columnID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT id FROM cards WHERE column_id = ? AND state != 'proposed' ORDER BY position ASC`, columnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func reindexColumnTx(tx *sql.Tx, columnID, excludeCardID int64) error {
	rows, err := tx.Query(`SELECT id FROM cards WHERE column_id = ? AND id != ? AND state != 'proposed' ORDER BY position ASC`, columnID, excludeCardID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE cards SET position = ? WHERE id = ?`, i, id); err != nil {
			return err
		}
	}
	return nil
}

// CompleteCard moves the card to the final column and appends the Completed
// system movement.
func (s *Store) CompleteCard(cardID int64) (model.Card, error) {
	lastColumn, err := s.lastColumnID()
	if err != nil {
		return model.Card{}, err
	}
	card, err := s.MoveCard(cardID, lastColumn, nil)
	if err != nil {
		return model.Card{}, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`INSERT INTO movements (card_id, subject, log_date, movement_type) VALUES (?, ?, ?, ?)`,
		cardID, "Card concluído", now, string(model.MovementCompleted))
	if err != nil {
		return model.Card{}, err
	}
	if _, err := s.db.Exec(`UPDATE cards SET sub_status = 'Concluído' WHERE id = ?`, cardID); err != nil {
		return model.Card{}, err
	}
	return s.GetCard(card.ID)
}

func (s *Store) DeleteCard(cardID int64) error {
	card, err := s.GetCard(cardID)
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM movements WHERE card_id = ?`,
		`DELETE FROM tags WHERE card_id = ?`,
		`DELETE FROM images WHERE card_id = ?`,
		`DELETE FROM cards WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, cardID); err != nil {
			return err
		}
	}
	if err := reindexColumnTx(tx, card.ColumnID, cardID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) AddMovement(cardID int64, subject, description string, timeSpent *int, movementType model.MovementType) (model.Movement, error) {
	if _, err := s.GetCard(cardID); err != nil {
		return model.Movement{}, err
	}
	if movementType == "" {
		movementType = model.MovementNote
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var spent any
	if timeSpent != nil {
		spent = *timeSpent
	}
	result, err := s.db.Exec(`
INSERT INTO movements (card_id, subject, description, time_spent, log_date, movement_type)
VALUES (?, ?, ?, ?, ?, ?)`,
		cardID, subject, description, spent, now, string(movementType))
	if err != nil {
		return model.Movement{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Movement{}, err
	}
	return s.GetMovement(id)
}

func (s *Store) GetMovement(movementID int64) (model.Movement, error) {
	var (
		m         model.Movement
		timeSpent sql.NullInt64
		logDate   string
	)
	err := s.db.QueryRow(`
SELECT id, card_id, subject, description, time_spent, log_date, movement_type
FROM movements WHERE id = ?`, movementID).
		Scan(&m.ID, &m.CardID, &m.Subject, &m.Description, &timeSpent, &logDate, &m.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movement{}, fmt.Errorf("movement %d: %w", movementID, os.ErrNotExist)
	}
	if err != nil {
		return model.Movement{}, err
	}
	if timeSpent.Valid {
		spent := int(timeSpent.Int64)
		m.TimeSpent = &spent
	}
	parsed, err := time.Parse(time.RFC3339, logDate)
	if err != nil {
		return model.Movement{}, err
	}
	m.LogDate = parsed
	return m, nil
}

func (s *Store) UpdateMovement(movementID int64, subject, description string, timeSpent *int) (model.Movement, error) {
	movement, err := s.GetMovement(movementID)
	if err != nil {
		return model.Movement{}, err
	}
	if model.IsSystemMovement(movement.Type) {
		return model.Movement{}, fmt.Errorf("movement %d is system generated", movementID)
	}
	var spent any
	if timeSpent != nil {
		spent = *timeSpent
	}
	_, err = s.db.Exec(`UPDATE movements SET subject = ?, description = ?, time_spent = ? WHERE id = ?`,
		subject, description, spent, movementID)
	if err != nil {
		return model.Movement{}, err
	}
	return s.GetMovement(movementID)
}

func (s *Store) DeleteMovement(movementID int64) error {
	movement, err := s.GetMovement(movementID)
	if err != nil {
		return err
	}
	if model.IsSystemMovement(movement.Type) {
		return fmt.Errorf("movement %d is system generated", movementID)
	}
	_, err = s.db.Exec(`DELETE FROM movements WHERE id = ?`, movementID)
	return err
}

func (s *Store) AddTag(cardID int64, name string) (model.Tag, error) {
	if _, err := s.GetCard(cardID); err != nil {
		return model.Tag{}, err
	}
	result, err := s.db.Exec(`INSERT INTO tags (card_id, name) VALUES (?, ?)`, cardID, name)
	if err != nil {
		return model.Tag{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Tag{}, err
	}
	return model.Tag{ID: id, Name: name}, nil
}

func (s *Store) RemoveTag(cardID, tagID int64) error {
	result, err := s.db.Exec(`DELETE FROM tags WHERE id = ? AND card_id = ?`, tagID, cardID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("tag %d: %w", tagID, os.ErrNotExist)
	}
	return nil
}

func (s *Store) AddImage(cardID int64, movementID *int64, path, fileName string) (model.Image, error) {
	var movement any
	card := any(cardID)
	if movementID != nil {
		movement = *movementID
		card = nil
	}
	result, err := s.db.Exec(`INSERT INTO images (card_id, movement_id, path, file_name) VALUES (?, ?, ?, ?)`,
		card, movement, path, fileName)
	if err != nil {
		return model.Image{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Image{}, err
	}
	image := model.Image{Path: path, FileName: fileName}
	if movementID != nil {
		image.MovementImageID = &id
	} else {
		image.CardImageID = &id
	}
	return image, nil
}

type companyFilter struct {
	Search string
	Status string
	Page   int
	Size   int
	Sort   string
}

func (s *Store) ListCompanies(filter companyFilter) (model.Page[model.Company], error) {
	all, err := s.allCompanies()
	if err != nil {
		return model.Page[model.Company]{}, err
	}

	filtered := make([]model.Company, 0, len(all))
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, company := range all {
		if filter.Status != "" && company.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(company.Name), search) &&
			!strings.Contains(strings.ToLower(company.TradeName), search) &&
			!strings.Contains(company.CNPJ, search) {
			continue
		}
		filtered = append(filtered, company)
	}

	if filter.Sort == "-created_at" {
		sort.Slice(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })
	}

	return paginate(filtered, filter.Page, filter.Size), nil
}

func paginate[T any](items []T, page, size int) model.Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	total := len(items)
	pages := (total + size - 1) / size
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return model.Page[T]{Items: items[start:end], Total: total, Page: page, Size: size, Pages: pages}
}

func (s *Store) allCompanies() ([]model.Company, error) {
	rows, err := s.db.Query(`SELECT id, name, trade_name, cnpj, status, city, state, created_at FROM companies ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]model.Company, 0)
	for rows.Next() {
		var (
			c       model.Company
			created string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.TradeName, &c.CNPJ, &c.Status, &c.City, &c.State, &created); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, err
		}
		c.CreatedAt = parsed
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *Store) GetCompany(companyID int64) (model.Company, error) {
	var (
		c       model.Company
		created string
	)
	err := s.db.QueryRow(`SELECT id, name, trade_name, cnpj, status, city, state, created_at FROM companies WHERE id = ?`, companyID).
		Scan(&c.ID, &c.Name, &c.TradeName, &c.CNPJ, &c.Status, &c.City, &c.State, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Company{}, fmt.Errorf("company %d: %w", companyID, os.ErrNotExist)
	}
	if err != nil {
		return model.Company{}, err
	}
	parsed, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return model.Company{}, err
	}
	c.CreatedAt = parsed
	return c, nil
}

func (s *Store) cnpjExists(cnpj string, excludeID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM companies WHERE cnpj = ? AND id != ?`, cnpj, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) CreateCompany(name, tradeName, cnpj, city, state string) (model.Company, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(`
INSERT INTO companies (name, trade_name, cnpj, status, city, state, created_at)
VALUES (?, ?, ?, 'pending', ?, ?, ?)`,
		name, tradeName, cnpj, city, state, now)
	if err != nil {
		return model.Company{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Company{}, err
	}
	return s.GetCompany(id)
}

func (s *Store) UpdateCompany(companyID int64, name, tradeName, cnpj, city, state string) (model.Company, error) {
	if _, err := s.GetCompany(companyID); err != nil {
		return model.Company{}, err
	}
	_, err := s.db.Exec(`UPDATE companies SET name = ?, trade_name = ?, cnpj = ?, city = ?, state = ? WHERE id = ?`,
		name, tradeName, cnpj, city, state, companyID)
	if err != nil {
		return model.Company{}, err
	}
	return s.GetCompany(companyID)
}

func (s *Store) PatchCompanyStatus(companyID int64, status string) (model.Company, error) {
	if _, err := s.GetCompany(companyID); err != nil {
		return model.Company{}, err
	}
	if _, err := s.db.Exec(`UPDATE companies SET status = ? WHERE id = ?`, status, companyID); err != nil {
		return model.Company{}, err
	}
	return s.GetCompany(companyID)
}

func (s *Store) DeleteCompany(companyID int64) error {
	if _, err := s.GetCompany(companyID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM companies WHERE id = ?`, companyID)
	return err
}

// CleanupPendingCompanies removes every company stuck in pending state.
func (s *Store) CleanupPendingCompanies() (int, error) {
	result, err := s.db.Exec(`DELETE FROM companies WHERE status = 'pending'`)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (s *Store) ListEstablishments(filter companyFilter) (model.Page[model.Establishment], error) {
	rows, err := s.db.Query(`SELECT id, company_id, code, name, type, category, is_active, city, state, created_at FROM establishments ORDER BY id ASC`)
	if err != nil {
		return model.Page[model.Establishment]{}, err
	}
	defer rows.Close()

	all := make([]model.Establishment, 0)
	for rows.Next() {
		establishment, err := scanEstablishment(rows)
		if err != nil {
			return model.Page[model.Establishment]{}, err
		}
		all = append(all, establishment)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.Establishment]{}, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	filtered := make([]model.Establishment, 0, len(all))
	for _, establishment := range all {
		if search != "" &&
			!strings.Contains(strings.ToLower(establishment.Name), search) &&
			!strings.Contains(strings.ToLower(establishment.Code), search) {
			continue
		}
		filtered = append(filtered, establishment)
	}
	return paginate(filtered, filter.Page, filter.Size), nil
}

func scanEstablishment(scanner interface{ Scan(...any) error }) (model.Establishment, error) {
	var (
		e       model.Establishment
		active  int
		created string
	)
	if err := scanner.Scan(&e.ID, &e.CompanyID, &e.Code, &e.Name, &e.Type, &e.Category, &active, &e.City, &e.State, &created); err != nil {
		return model.Establishment{}, err
	}
	e.IsActive = active == 1
	parsed, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return model.Establishment{}, err
	}
	e.CreatedAt = parsed
	return e, nil
}

func (s *Store) GetEstablishment(establishmentID int64) (model.Establishment, error) {
	row := s.db.QueryRow(`SELECT id, company_id, code, name, type, category, is_active, city, state, created_at FROM establishments WHERE id = ?`, establishmentID)
	establishment, err := scanEstablishment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Establishment{}, fmt.Errorf("establishment %d: %w", establishmentID, os.ErrNotExist)
	}
	return establishment, err
}

func (s *Store) CreateEstablishment(companyID int64, code, name, establishmentType, category, city, state string) (model.Establishment, error) {
	if _, err := s.GetCompany(companyID); err != nil {
		return model.Establishment{}, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(`
INSERT INTO establishments (company_id, code, name, type, category, is_active, city, state, created_at)
VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		companyID, code, name, establishmentType, category, city, state, now)
	if err != nil {
		return model.Establishment{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Establishment{}, err
	}
	return s.GetEstablishment(id)
}

func (s *Store) UpdateEstablishment(establishmentID int64, code, name, establishmentType, category, city, state string) (model.Establishment, error) {
	if _, err := s.GetEstablishment(establishmentID); err != nil {
		return model.Establishment{}, err
	}
	_, err := s.db.Exec(`UPDATE establishments SET code = ?, name = ?, type = ?, category = ?, city = ?, state = ? WHERE id = ?`,
		code, name, establishmentType, category, city, state, establishmentID)
	if err != nil {
		return model.Establishment{}, err
	}
	return s.GetEstablishment(establishmentID)
}

func (s *Store) PatchEstablishmentStatus(establishmentID int64, active bool) (model.Establishment, error) {
	if _, err := s.GetEstablishment(establishmentID); err != nil {
		return model.Establishment{}, err
	}
	value := 0
	if active {
		value = 1
	}
	if _, err := s.db.Exec(`UPDATE establishments SET is_active = ? WHERE id = ?`, value, establishmentID); err != nil {
		return model.Establishment{}, err
	}
	return s.GetEstablishment(establishmentID)
}

func (s *Store) DeleteEstablishment(establishmentID int64) error {
	if _, err := s.GetEstablishment(establishmentID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM establishments WHERE id = ?`, establishmentID)
	return err
}

func (s *Store) ListITIL(filter companyFilter, category string) (model.Page[model.ITILEntry], error) {
	rows, err := s.db.Query(`SELECT id, category, title, status, sla_minutes, opened_at, resolved_at FROM itil_entries ORDER BY opened_at DESC, id DESC`)
	if err != nil {
		return model.Page[model.ITILEntry]{}, err
	}
	defer rows.Close()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	entries := make([]model.ITILEntry, 0)
	for rows.Next() {
		var (
			entry    model.ITILEntry
			opened   string
			resolved sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Category, &entry.Title, &entry.Status, &entry.SLAMinutes, &opened, &resolved); err != nil {
			return model.Page[model.ITILEntry]{}, err
		}
		parsed, err := time.Parse(time.RFC3339, opened)
		if err != nil {
			return model.Page[model.ITILEntry]{}, err
		}
		entry.OpenedAt = parsed
		if resolved.Valid && resolved.String != "" {
			parsedResolved, err := time.Parse(time.RFC3339, resolved.String)
			if err != nil {
				return model.Page[model.ITILEntry]{}, err
			}
			entry.ResolvedAt = &parsedResolved
		}
		if category != "" && entry.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(entry.Title), search) {
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return model.Page[model.ITILEntry]{}, err
	}
	return paginate(entries, filter.Page, filter.Size), nil
}

func (s *Store) AddITILEntry(category, title, status string, slaMinutes int) (model.ITILEntry, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(`
INSERT INTO itil_entries (category, title, status, sla_minutes, opened_at)
VALUES (?, ?, ?, ?, ?)`,
		category, title, status, slaMinutes, now.Format(time.RFC3339))
	if err != nil {
		return model.ITILEntry{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.ITILEntry{}, err
	}
	return model.ITILEntry{ID: id, Category: category, Title: title, Status: status, SLAMinutes: slaMinutes, OpenedAt: now}, nil
}
