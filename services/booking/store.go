package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"transfera/models"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "booking:session:"

// ErrSessionNotFound is returned when a session id is unknown or has expired.
var ErrSessionNotFound = errors.New("booking session not found")

// SessionStore persists booking sessions between requests. Implementations
// must round-trip every field except card data, which is never stored.
type SessionStore interface {
	Save(ctx context.Context, s *models.BookingSession) error
	Load(ctx context.Context, id string) (*models.BookingSession, error)
	Delete(ctx context.Context, id string) error
}

// sessionRecord is the persisted shape of a session. It differs from the
// in-memory aggregate in three ways: the extras set becomes a sorted array,
// times become RFC3339 strings, and the vehicle is stored by id only and
// re-resolved against the catalog on load.
type sessionRecord struct {
	ID         string                `json:"sessionId"`
	Step       int                   `json:"step"`
	Route      models.Route          `json:"route"`
	IsReturn   bool                  `json:"isReturn"`
	PickupAt   string                `json:"pickupAt,omitempty"`
	ReturnAt   string                `json:"returnAt,omitempty"`
	Passengers int                   `json:"passengers"`
	VehicleID  string                `json:"vehicleId,omitempty"`
	Quote      *models.QuoteResponse `json:"quote,omitempty"`
	QuoteError string                `json:"quoteError,omitempty"`
	Personal   personalRecord        `json:"personal"`
	Payment    models.PaymentDetails `json:"payment"`
	BookingRef string                `json:"bookingRef,omitempty"`
	CreatedAt  string                `json:"createdAt"`
	UpdatedAt  string                `json:"updatedAt"`
}

type personalRecord struct {
	FirstName    string             `json:"firstName"`
	LastName     string             `json:"lastName"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	Country      string             `json:"country"`
	FlightNumber string             `json:"flightNumber,omitempty"`
	Extras       []string           `json:"extras,omitempty"`
	ChildSeats   map[string]int     `json:"childSeats,omitempty"`
	ExtraStops   []models.ExtraStop `json:"extraStops,omitempty"`
	Luggage      int                `json:"luggage"`
}

// EncodeSession serializes a session to its storage form.
func EncodeSession(s *models.BookingSession) ([]byte, error) {
	return json.Marshal(toRecord(s))
}

// DecodeSession restores a session from its storage form.
func DecodeSession(data []byte) (*models.BookingSession, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode booking session: %w", err)
	}
	return fromRecord(&rec)
}

func toRecord(s *models.BookingSession) *sessionRecord {
	rec := &sessionRecord{
		ID:         s.ID,
		Step:       s.Step,
		Route:      s.Route,
		IsReturn:   s.Schedule.IsReturn,
		Passengers: s.Passengers,
		Quote:      s.Quote,
		QuoteError: s.QuoteError,
		Payment:    s.Payment,
		BookingRef: s.BookingRef,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  s.UpdatedAt.Format(time.RFC3339),
		Personal: personalRecord{
			FirstName:    s.Personal.FirstName,
			LastName:     s.Personal.LastName,
			Email:        s.Personal.Email,
			Phone:        s.Personal.Phone,
			Country:      s.Personal.Country,
			FlightNumber: s.Personal.FlightNumber,
			ChildSeats:   s.Personal.ChildSeats,
			ExtraStops:   s.Personal.ExtraStops,
			Luggage:      s.Personal.Luggage,
		},
	}
	if s.Vehicle != nil {
		rec.VehicleID = s.Vehicle.ID
	} else {
		rec.VehicleID = s.VehicleID
	}
	if s.Schedule.PickupAt != nil {
		rec.PickupAt = s.Schedule.PickupAt.Format(time.RFC3339)
	}
	if s.Schedule.ReturnAt != nil {
		rec.ReturnAt = s.Schedule.ReturnAt.Format(time.RFC3339)
	}
	for id, on := range s.Personal.Extras {
		if on {
			rec.Personal.Extras = append(rec.Personal.Extras, id)
		}
	}
	sort.Strings(rec.Personal.Extras)
	return rec
}

func fromRecord(rec *sessionRecord) (*models.BookingSession, error) {
	s := &models.BookingSession{
		ID:         rec.ID,
		Step:       rec.Step,
		Route:      rec.Route,
		Passengers: rec.Passengers,
		VehicleID:  rec.VehicleID,
		Quote:      rec.Quote,
		QuoteError: rec.QuoteError,
		Payment:    rec.Payment,
		BookingRef: rec.BookingRef,
		Personal: models.PersonalDetails{
			FirstName:    rec.Personal.FirstName,
			LastName:     rec.Personal.LastName,
			Email:        rec.Personal.Email,
			Phone:        rec.Personal.Phone,
			Country:      rec.Personal.Country,
			FlightNumber: rec.Personal.FlightNumber,
			Extras:       make(map[string]bool, len(rec.Personal.Extras)),
			ChildSeats:   rec.Personal.ChildSeats,
			ExtraStops:   rec.Personal.ExtraStops,
			Luggage:      rec.Personal.Luggage,
		},
		Schedule: models.Schedule{IsReturn: rec.IsReturn},
	}
	for _, id := range rec.Personal.Extras {
		s.Personal.Extras[id] = true
	}
	if s.Personal.ChildSeats == nil {
		s.Personal.ChildSeats = make(map[string]int)
	}

	var err error
	if s.Schedule.PickupAt, err = parseStoredTime(rec.PickupAt); err != nil {
		return nil, fmt.Errorf("decode booking session: pickup time: %w", err)
	}
	if s.Schedule.ReturnAt, err = parseStoredTime(rec.ReturnAt); err != nil {
		return nil, fmt.Errorf("decode booking session: return time: %w", err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339, rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("decode booking session: createdAt: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339, rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("decode booking session: updatedAt: %w", err)
	}

	if rec.VehicleID != "" {
		v, ok := models.VehicleByID(rec.VehicleID)
		if !ok {
			// Catalog changed since the session was saved; fall back to the
			// first entry rather than losing the selection entirely.
			v = models.DefaultVehicle()
		}
		s.Vehicle = &v
		s.VehicleID = v.ID
	}
	return s, nil
}

func parseStoredTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RedisSessionStore keeps sessions as JSON blobs with a sliding TTL refreshed
// on every save.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (r *RedisSessionStore) Save(ctx context.Context, s *models.BookingSession) error {
	data, err := EncodeSession(s)
	if err != nil {
		return fmt.Errorf("encode booking session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save booking session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Load(ctx context.Context, id string) (*models.BookingSession, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking session: %w", err)
	}
	return DecodeSession(data)
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete booking session: %w", err)
	}
	return nil
}

// MemorySessionStore is the test double. It serializes through the same
// record shape as the Redis store so storage conversions stay honest.
type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string][]byte)}
}

func (m *MemorySessionStore) Save(_ context.Context, s *models.BookingSession) error {
	data, err := EncodeSession(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[s.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Load(_ context.Context, id string) (*models.BookingSession, error) {
	m.mu.RLock()
	data, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return DecodeSession(data)
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}
