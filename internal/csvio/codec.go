package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// table binds a schema to its row encoding.
type table[T any] struct {
	schema types.Schema
	encode func(T) []string
	decode func([]string) (T, error)
}

func (t table[T]) write(w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.schema.ColumnNames()); err != nil {
		return errors.NewExportError(errors.CodeWriteFailed, t.schema.Table+": header", err)
	}
	for _, r := range rows {
		if err := cw.Write(t.encode(r)); err != nil {
			return errors.NewExportError(errors.CodeWriteFailed, t.schema.Table+": row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewExportError(errors.CodeWriteFailed, t.schema.Table+": flush", err)
	}
	return nil
}

func (t table[T]) read(r io.Reader) ([]T, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.NewExportError(errors.CodeReadFailed, t.schema.Table+": header", err)
	}
	want := t.schema.ColumnNames()
	if len(header) != len(want) {
		return nil, errors.NewExportError(errors.CodeReadFailed,
			fmt.Sprintf("%s: header has %d columns, want %d", t.schema.Table, len(header), len(want)), nil)
	}
	for i := range want {
		if header[i] != want[i] {
			return nil, errors.NewExportError(errors.CodeReadFailed,
				fmt.Sprintf("%s: column %d is %q, want %q", t.schema.Table, i, header[i], want[i]), nil)
		}
	}

	rows := make([]T, 0)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errors.NewExportError(errors.CodeReadFailed, t.schema.Table, err)
		}
		row, err := t.decode(rec)
		if err != nil {
			return nil, errors.NewExportError(errors.CodeReadFailed,
				fmt.Sprintf("%s: line %d", t.schema.Table, line), err)
		}
		rows = append(rows, row)
	}
}

func formatInt(v int64) string      { return strconv.FormatInt(v, 10) }
func formatMoney(v float64) string  { return strconv.FormatFloat(v, 'f', 2, 64) }
func formatDate(t time.Time) string { return t.UTC().Format(types.DateLayout) }
func formatTS(t time.Time) string   { return t.UTC().Format(types.TimestampLayout) }

func formatOptional[T any](p *T, f func(T) string) string {
	if p == nil {
		return ""
	}
	return f(*p)
}

func parseOptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseOptionalInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// fieldErr accumulates the first parse error across a record.
type fieldErr struct {
	err error
}

func (f *fieldErr) int(name, s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	f.set(name, err)
	return v
}

func (f *fieldErr) float(name, s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	f.set(name, err)
	return v
}

func (f *fieldErr) bool(name, s string) bool {
	v, err := strconv.ParseBool(s)
	f.set(name, err)
	return v
}

func (f *fieldErr) date(name, s string) time.Time {
	v, err := time.Parse(types.DateLayout, s)
	f.set(name, err)
	return v
}

func (f *fieldErr) ts(name, s string) time.Time {
	v, err := time.Parse(types.TimestampLayout, s)
	f.set(name, err)
	return v
}

func (f *fieldErr) optInt(name, s string) *int64 {
	v, err := parseOptionalInt(s)
	f.set(name, err)
	return v
}

func (f *fieldErr) set(name string, err error) {
	if err != nil && f.err == nil {
		f.err = fmt.Errorf("%s: %w", name, err)
	}
}

func enumField[K types.Enum](f *fieldErr, name string, values []K, s string) K {
	v, err := types.ParseEnum(values, s)
	f.set(name, err)
	return v
}

var users = table[types.User]{
	schema: types.UsersSchema(),
	encode: func(u types.User) []string {
		return []string{
			formatInt(u.UserID),
			formatDate(u.SignupDate),
			string(u.Device),
			string(u.Country),
			strconv.FormatBool(u.IsBot),
			string(u.LoyaltyTier),
			string(u.ABVariant),
		}
	},
	decode: func(rec []string) (types.User, error) {
		var f fieldErr
		u := types.User{
			UserID:      f.int("user_id", rec[0]),
			SignupDate:  f.date("signup_date", rec[1]),
			Device:      enumField(&f, "device", types.Devices(), rec[2]),
			Country:     enumField(&f, "country", types.Countries(), rec[3]),
			IsBot:       f.bool("is_bot", rec[4]),
			LoyaltyTier: enumField(&f, "loyalty_tier", types.LoyaltyTiers(), rec[5]),
			ABVariant:   enumField(&f, "ab_variant", types.Variants(), rec[6]),
		}
		return u, f.err
	},
}

var sessions = table[types.Session]{
	schema: types.SessionsSchema(),
	encode: func(s types.Session) []string {
		return []string{s.SessionID, formatInt(s.UserID), formatTS(s.StartTime), string(s.Source)}
	},
	decode: func(rec []string) (types.Session, error) {
		var f fieldErr
		s := types.Session{
			SessionID: rec[0],
			UserID:    f.int("user_id", rec[1]),
			StartTime: f.ts("start_time", rec[2]),
			Source:    enumField(&f, "source", types.Sources(), rec[3]),
		}
		return s, f.err
	},
}

var events = table[types.Event]{
	schema: types.EventsSchema(),
	encode: func(e types.Event) []string {
		return []string{
			e.EventID,
			formatInt(e.UserID),
			formatOptional(e.SessionID, func(s string) string { return s }),
			e.EventType.String(),
			string(e.Page),
			formatOptional(e.ProductID, formatInt),
			formatOptional(e.ProductCategory, func(s string) string { return s }),
			formatTS(e.TS),
			string(e.Source),
			string(e.Device),
			formatOptional(e.ABTestID, func(s string) string { return s }),
			formatOptional(e.Variant, func(v types.Variant) string { return string(v) }),
		}
	},
	decode: func(rec []string) (types.Event, error) {
		var f fieldErr
		et, err := types.ParseEventType(rec[3])
		f.set("event_type", err)
		e := types.Event{
			EventID:         rec[0],
			UserID:          f.int("user_id", rec[1]),
			SessionID:       parseOptionalString(rec[2]),
			EventType:       et,
			Page:            enumField(&f, "page", []types.Page{types.PageHome, types.PageProduct, types.PageCheckout}, rec[4]),
			ProductID:       f.optInt("product_id", rec[5]),
			ProductCategory: parseOptionalString(rec[6]),
			TS:              f.ts("ts", rec[7]),
			Source:          enumField(&f, "source", types.Sources(), rec[8]),
			Device:          enumField(&f, "device", types.Devices(), rec[9]),
			ABTestID:        parseOptionalString(rec[10]),
		}
		if rec[11] != "" {
			v := enumField(&f, "variant", types.Variants(), rec[11])
			e.Variant = &v
		}
		return e, f.err
	},
}

var orders = table[types.Order]{
	schema: types.OrdersSchema(),
	encode: func(o types.Order) []string {
		return []string{
			o.OrderID,
			formatInt(o.UserID),
			formatInt(o.ProductID),
			formatMoney(o.Price),
			strconv.Itoa(o.Quantity),
			formatMoney(o.DiscountAmount),
			formatTS(o.TS),
			string(o.PaymentStatus),
		}
	},
	decode: func(rec []string) (types.Order, error) {
		var f fieldErr
		o := types.Order{
			OrderID:        rec[0],
			UserID:         f.int("user_id", rec[1]),
			ProductID:      f.int("product_id", rec[2]),
			Price:          f.float("price", rec[3]),
			Quantity:       int(f.int("quantity", rec[4])),
			DiscountAmount: f.float("discount_amount", rec[5]),
			TS:             f.ts("ts", rec[6]),
			PaymentStatus:  enumField(&f, "payment_status", []types.PaymentStatus{types.PaymentSuccess, types.PaymentFailed}, rec[7]),
		}
		return o, f.err
	},
}

// WriteUsers writes users with a header row.
func WriteUsers(w io.Writer, rows []types.User) error { return users.write(w, rows) }

// ReadUsers reads users written by WriteUsers.
func ReadUsers(r io.Reader) ([]types.User, error) { return users.read(r) }

// WriteSessions writes sessions with a header row.
func WriteSessions(w io.Writer, rows []types.Session) error { return sessions.write(w, rows) }

// ReadSessions reads sessions written by WriteSessions.
func ReadSessions(r io.Reader) ([]types.Session, error) { return sessions.read(r) }

// WriteEvents writes events with a header row. Null fields are empty.
func WriteEvents(w io.Writer, rows []types.Event) error { return events.write(w, rows) }

// ReadEvents reads events written by WriteEvents.
func ReadEvents(r io.Reader) ([]types.Event, error) { return events.read(r) }

// WriteOrders writes orders with a header row. Money has two decimals.
func WriteOrders(w io.Writer, rows []types.Order) error { return orders.write(w, rows) }

// ReadOrders reads orders written by WriteOrders.
func ReadOrders(r io.Reader) ([]types.Order, error) { return orders.read(r) }
