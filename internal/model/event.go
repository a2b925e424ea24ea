package model

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/visualtk/vnintegration/internal/xmljson"
)

// Event is one entry of the remote repertoire. Values are kept as the remote sends them.
type Event struct {
	ID                 string `mapstructure:"id" json:"id"`
	Name               string `mapstructure:"name" json:"name,omitempty"`
	Tickets            string `mapstructure:"tickets" json:"tickets,omitempty"`
	Free               string `mapstructure:"free" json:"free,omitempty"`
	Entries            string `mapstructure:"nb_of_entry" json:"nb_of_entry,omitempty"`
	Date               string `mapstructure:"date" json:"date,omitempty"`
	Timestamp          string `mapstructure:"timestamp" json:"timestamp,omitempty"`
	DateOfDistribution string `mapstructure:"date_of_distribution" json:"date_of_distribution,omitempty"`
	LocationID         string `mapstructure:"location_id" json:"location_id,omitempty"`
	Type               string `mapstructure:"type" json:"type,omitempty"`
	Updated            string `mapstructure:"updated" json:"updated,omitempty"`

	Fields map[string]interface{} `mapstructure:"-" json:"-"`
}

// Ticket is one ticket or pass record of an event.
type Ticket struct {
	Name      string `mapstructure:"name" json:"name,omitempty"`
	Price     string `mapstructure:"price" json:"price,omitempty"`
	Entry     string `mapstructure:"entry" json:"entry,omitempty"`
	EntryTime string `mapstructure:"entry_time" json:"entry_time,omitempty"`
	Pass      string `mapstructure:"pass" json:"pass,omitempty"`
	Code      string `mapstructure:"ticket" json:"ticket,omitempty"`
	Out       string `mapstructure:"out" json:"out,omitempty"`
	OutTime   string `mapstructure:"out_time" json:"out_time,omitempty"`

	Fields map[string]interface{} `mapstructure:"-" json:"-"`
}

// DecodeEvents converts decoded repertoire entries into events.
func DecodeEvents(records []interface{}) ([]Event, error) {
	events := make([]Event, 0, len(records))
	for n, record := range records {
		var event Event
		fields, err := decodeRecord(record, &event)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding event %d", n)
		}
		if event.ID == "" {
			return nil, errors.Errorf("event %d has no id", n)
		}
		event.Fields = fields
		events = append(events, event)
	}
	return events, nil
}

// DecodeTickets converts decoded ticket records into tickets.
func DecodeTickets(records []interface{}) ([]Ticket, error) {
	tickets := make([]Ticket, 0, len(records))
	for n, record := range records {
		var ticket Ticket
		fields, err := decodeRecord(record, &ticket)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding ticket %d", n)
		}
		ticket.Fields = fields
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// Dates returns the non-empty entry and exit times of the ticket.
func (t Ticket) Dates() []string {
	dates := make([]string, 0, 2)
	for _, d := range []string{t.EntryTime, t.OutTime} {
		if d != "" {
			dates = append(dates, d)
		}
	}
	return dates
}

func decodeRecord(record interface{}, out interface{}) (map[string]interface{}, error) {
	fields, ok := record.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("unexpected record type %T", record)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       textHook,
	})
	if err != nil {
		return nil, err
	}
	if err = decoder.Decode(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// textHook reduces elements decoded as maps or repeated elements to their text.
func textHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Map, reflect.Slice:
		return xmljson.Text(data), nil
	}
	return data, nil
}
