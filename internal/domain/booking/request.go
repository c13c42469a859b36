package booking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/example/dine-composer/internal/internaltypes"
)

type Occasion string

const (
	OccasionNone        Occasion = "None"
	OccasionBirthday    Occasion = "Birthday"
	OccasionAnniversary Occasion = "Anniversary"
	OccasionGraduation  Occasion = "Graduation"
	OccasionPromotion   Occasion = "Promotion"
	OccasionEngagement  Occasion = "Engagement"
	OccasionOther       Occasion = "Other"
)

var Occasions = []Occasion{
	OccasionNone, OccasionBirthday, OccasionAnniversary, OccasionGraduation,
	OccasionPromotion, OccasionEngagement, OccasionOther,
}

// ParseOccasion matches case-insensitively. Empty input is None.
func ParseOccasion(s string) (Occasion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OccasionNone, nil
	}
	for _, o := range Occasions {
		if strings.EqualFold(string(o), s) {
			return o, nil
		}
	}
	return "", internaltypes.Invalid("unknown occasion %q", s)
}

func (o Occasion) Valid() bool {
	for _, k := range Occasions {
		if o == k {
			return true
		}
	}
	return false
}

type MusicSelection struct {
	SongID         int64
	CoinCategoryID int64
	Dedication     string
}

// Draft is one booking attempt as composed by the user. The calling flow owns it.
type Draft struct {
	ID           uuid.UUID
	UserID       int64
	RestaurantID int64
	At           time.Time
	Tables       *TableSelection
	Occasion     Occasion
	Music        *MusicSelection
}

func NewDraft(userID, restaurantID int64) *Draft {
	return &Draft{
		ID:           uuid.New(),
		UserID:       userID,
		RestaurantID: restaurantID,
		Tables:       NewTableSelection(),
		Occasion:     OccasionNone,
	}
}

// Celebratory reports whether the draft carries an occasion other than None.
func (d *Draft) Celebratory() bool {
	return d.Occasion != "" && d.Occasion != OccasionNone
}

var draftNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("dinectl:booking"))

// ContentKey is derived from what the draft books: user, restaurant, instant,
// tables, occasion and music. Submitting the same booking again, from any
// process, yields the same key.
func (d *Draft) ContentKey() uuid.UUID {
	occ := d.Occasion
	if occ == "" {
		occ = OccasionNone
	}
	var tables []int64
	if d.Tables != nil {
		tables = d.Tables.Members()
	}
	var music MusicSelection
	if d.Music != nil {
		music = *d.Music
		music.Dedication = strings.TrimSpace(music.Dedication)
	}
	name := fmt.Sprintf("u=%d r=%d at=%s tables=%v occ=%s song=%d coin=%d note=%q",
		d.UserID, d.RestaurantID, WireTime(d.At), tables, occ,
		music.SongID, music.CoinCategoryID, music.Dedication)
	return uuid.NewSHA1(draftNamespace, []byte(name))
}

type Operation string

const (
	OpCreateSingle   Operation = "create-single"
	OpCreateMultiple Operation = "create-multiple"
)

// Request is either a SingleTableBooking or a MultiTableBooking.
type Request interface {
	Operation() Operation
	json.Marshaler
	isRequest()
}

type bookingFields struct {
	UserID          int64  `json:"userId"`
	ReservationTime string `json:"reservationTime"`
	Occasion        string `json:"occasion"`
	MusicID         int64  `json:"musicId,omitempty"`
	CoinCategoryID  int64  `json:"coinCategoryId,omitempty"`
	DedicationNote  string `json:"dedicationNote,omitempty"`
}

type SingleTableBooking struct {
	bookingFields
	TableID int64
}

func (SingleTableBooking) Operation() Operation { return OpCreateSingle }
func (SingleTableBooking) isRequest()           {}

func (b SingleTableBooking) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		bookingFields
		TableID int64 `json:"tableId"`
	}{b.bookingFields, b.TableID})
}

type MultiTableBooking struct {
	bookingFields
	TableIDs []int64
}

func (MultiTableBooking) Operation() Operation { return OpCreateMultiple }
func (MultiTableBooking) isRequest()           {}

func (b MultiTableBooking) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		bookingFields
		TableIDs []int64 `json:"tableIds"`
	}{b.bookingFields, b.TableIDs})
}

var (
	ErrNoTables    = errors.Mark(errors.New("no tables selected"), internaltypes.ErrValidation)
	ErrMissingUser = errors.Mark(errors.New("user id is required"), internaltypes.ErrValidation)
)

// Build validates the draft against w and picks the request shape from the table count.
func Build(d *Draft, w Window) (Request, error) {
	if d == nil {
		return nil, internaltypes.Invalid("no booking draft")
	}
	if d.UserID <= 0 {
		return nil, ErrMissingUser
	}
	if d.Tables == nil || d.Tables.Len() == 0 {
		return nil, ErrNoTables
	}
	occ := d.Occasion
	if occ == "" {
		occ = OccasionNone
	}
	if !occ.Valid() {
		return nil, internaltypes.Invalid("unknown occasion %q", d.Occasion)
	}
	if d.At.IsZero() {
		return nil, internaltypes.Invalid("reservation time is required")
	}
	if err := CheckWindow(d.At, w); err != nil {
		return nil, err
	}

	f := bookingFields{
		UserID:          d.UserID,
		ReservationTime: WireTime(d.At),
		Occasion:        string(occ),
	}
	if m := d.Music; m != nil {
		if m.SongID < 0 || m.CoinCategoryID < 0 {
			return nil, internaltypes.Invalid("music ids must be positive")
		}
		f.MusicID = m.SongID
		f.CoinCategoryID = m.CoinCategoryID
		f.DedicationNote = strings.TrimSpace(m.Dedication)
	}

	ids := d.Tables.Members()
	if len(ids) == 1 {
		return SingleTableBooking{bookingFields: f, TableID: ids[0]}, nil
	}
	return MultiTableBooking{bookingFields: f, TableIDs: ids}, nil
}
