// Package dynamo stores the calendar, quotes and bookings in DynamoDB.
//
// Table requirements (all PAY_PER_REQUEST, string partition keys):
//   - days:     date
//   - quotes:   id
//   - bookings: id
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/fletes-app/service-quote/internal/common/domain"
	"github.com/fletes-app/service-quote/internal/domain/agenda"
	"github.com/fletes-app/service-quote/internal/domain/quote"
)

const (
	saveDayAttempts = 3
	reserveAttempts = 8
)

// Tables names the three tables the store uses.
type Tables struct {
	Days     string
	Quotes   string
	Bookings string
}

func (t Tables) withDefaults() Tables {
	if t.Days == "" {
		t.Days = "availability_days"
	}
	if t.Quotes == "" {
		t.Quotes = "quotes"
	}
	if t.Bookings == "" {
		t.Bookings = "bookings"
	}
	return t
}

// Store implements quote.Repository and agenda.Repository on DynamoDB.
type Store struct {
	ddb    *dynamodb.Client
	tables Tables
}

// NewStore creates a new Store.
func NewStore(ddb *dynamodb.Client, tables Tables) *Store {
	return &Store{ddb: ddb, tables: tables.withDefaults()}
}

// Ping checks the days table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tables.Days)})
	return err
}

// EnsureTables creates any missing table and waits until it is active.
func (s *Store) EnsureTables(ctx context.Context) error {
	for name, key := range map[string]string{
		s.tables.Days:     "date",
		s.tables.Quotes:   "id",
		s.tables.Bookings: "id",
	} {
		_, err := s.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err == nil {
			continue
		}
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to describe table %s: %w", name, err)
		}

		_, err = s.ddb.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:   aws.String(name),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(key), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(key), KeyType: types.KeyTypeHash},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
		waiter := dynamodb.NewTableExistsWaiter(s.ddb)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, time.Minute); err != nil {
			return fmt.Errorf("table %s not ready: %w", name, err)
		}
	}
	return nil
}

// --- quote.Repository ---

// FindByID retrieves a quote by its unique identifier.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*quote.Quote, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Quotes),
		Key:            stringKey("id", id.String()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("failed to get quote", err)
	}
	if len(out.Item) == 0 {
		return nil, domain.NewNotFoundError("Quote", id.String())
	}

	var it quoteItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return fromQuoteItem(it)
}

// List returns the quotes in view, newest first.
func (s *Store) List(ctx context.Context, view quote.View, today string) ([]*quote.Quote, error) {
	items, err := s.scanQuotes(ctx, "", nil)
	if err != nil {
		return nil, err
	}

	out := []*quote.Quote{}
	for _, it := range items {
		q, err := fromQuoteItem(it)
		if err != nil {
			return nil, err
		}
		if q.Matches(view, today) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out, nil
}

// Update persists a status change made from status from.
func (s *Store) Update(ctx context.Context, q *quote.Quote, from quote.Status) error {
	_, err := s.ddb.UpdateItem(ctx, updateQuoteStatus(s.tables.Quotes, q, from).toInput())
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return quote.NewStatusChangedError(q.ID(), from)
		}
		return classify("failed to update quote", err)
	}
	return nil
}

// RealizeBefore moves confirmed quotes whose appointment is before today to realized.
func (s *Store) RealizeBefore(ctx context.Context, today string, at time.Time) (int64, error) {
	items, err := s.scanQuotes(ctx,
		"#status = :confirmed AND size(#slot_date) > :zero AND #slot_date < :today",
		map[string]types.AttributeValue{
			":confirmed": str(string(quote.StatusConfirmed)),
			":zero":      &types.AttributeValueMemberN{Value: "0"},
			":today":     str(today),
		})
	if err != nil {
		return 0, err
	}

	var n int64
	for _, it := range items {
		_, err := s.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(s.tables.Quotes),
			Key:                 stringKey("id", it.ID),
			UpdateExpression:    aws.String("SET #status = :realized, #realized_at = :at, #updated_at = :at"),
			ConditionExpression: aws.String("#status = :confirmed"),
			ExpressionAttributeNames: map[string]string{
				"#status":      "status",
				"#realized_at": "realized_at",
				"#updated_at":  "updated_at",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":realized":  str(string(quote.StatusRealized)),
				":confirmed": str(string(quote.StatusConfirmed)),
				":at":        str(formatTime(at)),
			},
		})
		if err != nil {
			var cfe *types.ConditionalCheckFailedException
			if errors.As(err, &cfe) {
				continue
			}
			return n, classify("failed to realize quote", err)
		}
		n++
	}
	return n, nil
}

// PurgeBefore deletes sent and rejected quotes whose appointment is before today, with
// their bookings.
func (s *Store) PurgeBefore(ctx context.Context, today string) (int64, error) {
	items, err := s.scanQuotes(ctx,
		"#status IN (:sent, :rejected) AND size(#slot_date) > :zero AND #slot_date < :today",
		map[string]types.AttributeValue{
			":sent":     str(string(quote.StatusSent)),
			":rejected": str(string(quote.StatusRejected)),
			":zero":     &types.AttributeValueMemberN{Value: "0"},
			":today":    str(today),
		})
	if err != nil || len(items) == 0 {
		return 0, err
	}

	bookings, err := s.scanBookings(ctx, "#date < :today", map[string]types.AttributeValue{":today": str(today)})
	if err != nil {
		return 0, err
	}
	byQuote := make(map[string][]string)
	for _, b := range bookings {
		byQuote[b.QuoteID] = append(byQuote[b.QuoteID], b.ID)
	}

	var n int64
	for _, it := range items {
		_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                aws.String(s.tables.Quotes),
			Key:                      stringKey("id", it.ID),
			ConditionExpression:      aws.String("#status IN (:sent, :rejected)"),
			ExpressionAttributeNames: map[string]string{"#status": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":sent":     str(string(quote.StatusSent)),
				":rejected": str(string(quote.StatusRejected)),
			},
		})
		if err != nil {
			var cfe *types.ConditionalCheckFailedException
			if errors.As(err, &cfe) {
				continue
			}
			return n, classify("failed to purge quote", err)
		}
		n++

		for _, bookingID := range byQuote[it.ID] {
			if _, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.tables.Bookings),
				Key:       stringKey("id", bookingID),
			}); err != nil {
				return n, classify("failed to purge booking", err)
			}
		}
	}
	return n, nil
}

// --- agenda.Repository ---

// FindDay retrieves a day by date.
func (s *Store) FindDay(ctx context.Context, date string) (*agenda.Day, error) {
	it, found, err := s.getDay(ctx, date)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.NewNotFoundError("Day", date)
	}
	return fromDayItem(it), nil
}

// ListDays returns days between from and to inclusive, ordered by date.
func (s *Store) ListDays(ctx context.Context, from, to string, enabledOnly bool) ([]*agenda.Day, error) {
	filter := "#date BETWEEN :from AND :to"
	names := map[string]string{"#date": "date"}
	values := map[string]types.AttributeValue{":from": str(from), ":to": str(to)}
	if enabledOnly {
		filter += " AND #enabled = :t"
		names["#enabled"] = "enabled"
		values[":t"] = &types.AttributeValueMemberBOOL{Value: true}
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.tables.Days),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
	}

	var items []dayItem
	p := dynamodb.NewScanPaginator(s.ddb, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify("failed to scan days", err)
		}
		var batch []dayItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal days: %w", err)
		}
		items = append(items, batch...)
	}

	days := make([]*agenda.Day, len(items))
	for i, it := range items {
		days[i] = fromDayItem(it)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date() < days[j].Date() })
	return days, nil
}

// SaveDay drops slots held by active bookings and writes the day, guarded by the stored
// updated_at so a reservation landing in between forces a re-read.
func (s *Store) SaveDay(ctx context.Context, day *agenda.Day) ([]string, error) {
	blocked := []string{}
	for range saveDayAttempts {
		prev, found, err := s.getDay(ctx, day.Date())
		if err != nil {
			return nil, err
		}
		occupied, err := s.ActiveSlots(ctx, day.Date())
		if err != nil {
			return nil, err
		}
		for _, slot := range day.Exclude(occupied) {
			if !slices.Contains(blocked, slot) {
				blocked = append(blocked, slot)
			}
		}

		av, err := attributevalue.MarshalMap(toDayItem(day))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal day: %w", err)
		}
		input := &dynamodb.PutItemInput{
			TableName:                aws.String(s.tables.Days),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#date)"),
			ExpressionAttributeNames: map[string]string{"#date": "date"},
		}
		if found {
			input.ConditionExpression = aws.String("#updated_at = :prev")
			input.ExpressionAttributeNames = map[string]string{"#updated_at": "updated_at"}
			input.ExpressionAttributeValues = map[string]types.AttributeValue{":prev": str(prev.UpdatedAt)}
		}

		_, err = s.ddb.PutItem(ctx, input)
		if err == nil {
			slices.Sort(blocked)
			return blocked, nil
		}
		var cfe *types.ConditionalCheckFailedException
		if !errors.As(err, &cfe) {
			return nil, classify("failed to save day", err)
		}
	}
	return nil, domain.NewConflictError(fmt.Sprintf("day %s was modified concurrently", day.Date()))
}

// ActiveSlots returns the sorted slots on date held by reserved or confirmed bookings.
func (s *Store) ActiveSlots(ctx context.Context, date string) ([]string, error) {
	items, err := s.scanBookings(ctx, "#date = :date", map[string]types.AttributeValue{":date": str(date)})
	if err != nil {
		return nil, err
	}
	slots := []string{}
	for _, it := range items {
		if active(it) && !slices.Contains(slots, it.Slot) {
			slots = append(slots, it.Slot)
		}
	}
	slices.Sort(slots)
	return slots, nil
}

// Reserve removes the slot from its day under the condition that the day is enabled and
// still lists it, and writes the quote and booking in the same transaction.
func (s *Store) Reserve(ctx context.Context, q *quote.Quote, b *agenda.Booking) error {
	qi, err := toQuoteItem(q)
	if err != nil {
		return err
	}
	quoteAV, err := attributevalue.MarshalMap(qi)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}
	bookingAV, err := attributevalue.MarshalMap(toBookingItem(b))
	if err != nil {
		return fmt.Errorf("failed to marshal booking: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:           aws.String(s.tables.Days),
				Key:                 stringKey("date", b.Date),
				UpdateExpression:    aws.String("DELETE #slots :set SET #updated_at = :now"),
				ConditionExpression: aws.String("#enabled = :t AND contains(#slots, :slot)"),
				ExpressionAttributeNames: map[string]string{
					"#slots":      "slots",
					"#enabled":    "enabled",
					"#updated_at": "updated_at",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":set":  &types.AttributeValueMemberSS{Value: []string{b.Slot}},
					":slot": str(b.Slot),
					":t":    &types.AttributeValueMemberBOOL{Value: true},
					":now":  str(formatTime(time.Now())),
				},
			}},
			{Put: &types.Put{
				TableName:                aws.String(s.tables.Quotes),
				Item:                     quoteAV,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": "id"},
			}},
			{Put: &types.Put{
				TableName: aws.String(s.tables.Bookings),
				Item:      bookingAV,
			}},
		},
	}

	for attempt := 1; ; attempt++ {
		_, err = s.ddb.TransactWriteItems(ctx, input)
		switch {
		case err == nil:
			return nil
		case cancelledAt(err, 0):
			return domain.ErrSlotUnavailable
		case conflicted(err) && attempt < reserveAttempts:
			select {
			case <-ctx.Done():
				return classify("failed to reserve slot", ctx.Err())
			case <-time.After(time.Duration(attempt*25+rand.IntN(25)) * time.Millisecond):
			}
		default:
			return classify("failed to reserve slot", err)
		}
	}
}

// Confirm stores the confirmed quote and flips its bookings, recreating one if none is left.
func (s *Store) Confirm(ctx context.Context, q *quote.Quote, at time.Time) error {
	bookings, err := s.scanBookings(ctx, "#quote_id = :q", map[string]types.AttributeValue{":q": str(q.ID().String())})
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{{Update: updateQuoteStatus(s.tables.Quotes, q, quote.StatusSent).toTransact()}}
	for _, b := range bookings {
		items = append(items, types.TransactWriteItem{Update: &types.Update{
			TableName:                aws.String(s.tables.Bookings),
			Key:                      stringKey("id", b.ID),
			UpdateExpression:         aws.String("SET #status = :confirmed, #confirmed_at = :at"),
			ExpressionAttributeNames: map[string]string{"#status": "status", "#confirmed_at": "confirmed_at"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":confirmed": str(string(agenda.BookingConfirmed)),
				":at":        str(formatTime(at)),
			},
		}})
	}
	if slot, ok := q.Slot(); ok && len(bookings) == 0 {
		b := agenda.NewBooking(q.ID(), slot.Date, slot.Time)
		b.Status = agenda.BookingConfirmed
		b.ConfirmedAt = &at
		av, err := attributevalue.MarshalMap(toBookingItem(b))
		if err != nil {
			return fmt.Errorf("failed to marshal booking: %w", err)
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(s.tables.Bookings),
			Item:      av,
		}})
	}

	if _, err := s.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if cancelledAt(err, 0) {
			return quote.NewStatusChangedError(q.ID(), quote.StatusSent)
		}
		return classify("failed to confirm booking", err)
	}
	return nil
}

// Release deletes the quote and its bookings and adds the slot back with ADD, which is a
// set union and creates a disabled day when none exists.
func (s *Store) Release(ctx context.Context, quoteID uuid.UUID, slot quote.Slot) error {
	filter := "#quote_id = :q"
	values := map[string]types.AttributeValue{":q": str(quoteID.String())}
	hasSlot := slot.Date != "" && slot.Time != ""
	if hasSlot {
		filter += " OR (#date = :d AND #slot = :s)"
		values[":d"] = str(slot.Date)
		values[":s"] = str(slot.Time)
	}
	bookings, err := s.scanBookings(ctx, filter, values)
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{{Delete: &types.Delete{
		TableName:                aws.String(s.tables.Quotes),
		Key:                      stringKey("id", quoteID.String()),
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	}}}
	for _, b := range bookings {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(s.tables.Bookings),
			Key:       stringKey("id", b.ID),
		}})
	}
	if hasSlot {
		items = append(items, types.TransactWriteItem{Update: &types.Update{
			TableName:        aws.String(s.tables.Days),
			Key:              stringKey("date", slot.Date),
			UpdateExpression: aws.String("ADD #slots :set SET #updated_at = :now, #enabled = if_not_exists(#enabled, :f)"),
			ExpressionAttributeNames: map[string]string{
				"#slots":      "slots",
				"#enabled":    "enabled",
				"#updated_at": "updated_at",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":set": &types.AttributeValueMemberSS{Value: []string{slot.Time}},
				":now": str(formatTime(time.Now())),
				":f":   &types.AttributeValueMemberBOOL{Value: false},
			},
		}})
	}

	if _, err := s.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if cancelledAt(err, 0) {
			return domain.NewNotFoundError("Quote", quoteID.String())
		}
		return classify("failed to release slot", err)
	}
	return nil
}

// --- helpers ---

func (s *Store) getDay(ctx context.Context, date string) (dayItem, bool, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Days),
		Key:            stringKey("date", date),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dayItem{}, false, classify("failed to get day", err)
	}
	if len(out.Item) == 0 {
		return dayItem{}, false, nil
	}
	var it dayItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return dayItem{}, false, fmt.Errorf("failed to unmarshal day: %w", err)
	}
	return it, true, nil
}

func (s *Store) scanQuotes(ctx context.Context, filter string, values map[string]types.AttributeValue) ([]quoteItem, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(s.tables.Quotes),
		ConsistentRead: aws.Bool(true),
	}
	if filter != "" {
		input.FilterExpression = aws.String(filter)
		input.ExpressionAttributeNames = map[string]string{"#status": "status", "#slot_date": "slot_date"}
		input.ExpressionAttributeValues = values
	}

	var items []quoteItem
	p := dynamodb.NewScanPaginator(s.ddb, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify("failed to scan quotes", err)
		}
		var batch []quoteItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quotes: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

func (s *Store) scanBookings(ctx context.Context, filter string, values map[string]types.AttributeValue) ([]bookingItem, error) {
	names := map[string]string{}
	for placeholder, attr := range map[string]string{
		"#quote_id": "quote_id",
		"#date":     "date",
		"#slot":     "slot",
	} {
		if strings.Contains(filter, placeholder) {
			names[placeholder] = attr
		}
	}

	var items []bookingItem
	p := dynamodb.NewScanPaginator(s.ddb, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tables.Bookings),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify("failed to scan bookings", err)
		}
		var batch []bookingItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bookings: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

type quoteStatusUpdate struct {
	table  string
	key    map[string]types.AttributeValue
	expr   string
	names  map[string]string
	values map[string]types.AttributeValue
}

// updateQuoteStatus builds a status write conditioned on the item still being in from.
func updateQuoteStatus(table string, q *quote.Quote, from quote.Status) quoteStatusUpdate {
	return quoteStatusUpdate{
		table: table,
		key:   stringKey("id", q.ID().String()),
		expr:  "SET #status = :status, #confirmed_at = :confirmed_at, #realized_at = :realized_at, #updated_at = :updated_at",
		names: map[string]string{
			"#status":       "status",
			"#confirmed_at": "confirmed_at",
			"#realized_at":  "realized_at",
			"#updated_at":   "updated_at",
		},
		values: map[string]types.AttributeValue{
			":from":         str(string(from)),
			":status":       str(string(q.Status())),
			":confirmed_at": str(formatTimePtr(q.ConfirmedAt())),
			":realized_at":  str(formatTimePtr(q.RealizedAt())),
			":updated_at":   str(formatTime(q.UpdatedAt())),
		},
	}
}

func (u quoteStatusUpdate) toInput() *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(u.table),
		Key:                       u.key,
		UpdateExpression:          aws.String(u.expr),
		ConditionExpression:       aws.String("#status = :from"),
		ExpressionAttributeNames:  u.names,
		ExpressionAttributeValues: u.values,
	}
}

func (u quoteStatusUpdate) toTransact() *types.Update {
	return &types.Update{
		TableName:                 aws.String(u.table),
		Key:                       u.key,
		UpdateExpression:          aws.String(u.expr),
		ConditionExpression:       aws.String("#status = :from"),
		ExpressionAttributeNames:  u.names,
		ExpressionAttributeValues: u.values,
	}
}

func stringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: str(value)}
}

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}
