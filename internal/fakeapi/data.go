package fakeapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2.01.2006, 15:04:05"

func (s *Server) generateEvent(eventID string) map[string]interface{} {
	date := time.Now().Add(time.Duration(s.random.Int63n(int64(30 * 24 * time.Hour))))
	return map[string]interface{}{
		"id":                             eventID,
		"tickets":                        strconv.Itoa(s.random.Intn(200)),
		"date_of_distribution":           date.Format("2.01.2006"),
		"date_of_distribution_timestamp": strconv.FormatInt(date.Unix(), 10),
		"location_id":                    "2",
		"external":                       "",
		"nb_of_entry":                    "0",
		"free":                           strconv.Itoa(s.random.Intn(3000)),
		"type":                           "1",
		"date":                           date.Format(dateLayout),
		"timestamp":                      strconv.FormatInt(date.Unix(), 10),
		"updated":                        strconv.FormatInt(time.Now().Unix(), 10),
		"details":                        "",
		"products": map[string]interface{}{
			"product": map[string]interface{}{
				"id":                 strconv.Itoa(s.random.Intn(100) + 200),
				"price":              s.price(),
				"available_for_pass": "false",
				"for_pass":           "false",
				"available":          strconv.Itoa(s.random.Intn(500)),
			},
		},
	}
}

func (s *Server) generateTicket(i int) map[string]interface{} {
	ticket := map[string]interface{}{
		"name":       fmt.Sprintf("Ticket %d", i+1),
		"price":      s.price(),
		"entry":      "0",
		"entry_time": "",
		"pass":       "",
		"ticket":     strconv.FormatInt(4000000000000+s.random.Int63n(1000000), 10),
		"out":        "0",
		"out_time":   "",
	}
	if i%3 == 0 {
		ticket["entry"] = "1"
		ticket["entry_time"] = time.Now().Add(-time.Duration(i) * time.Minute).Format(dateLayout)
	}
	return ticket
}

func (s *Server) price() string {
	return strings.Replace(fmt.Sprintf("%.2f", s.random.Float64()*100), ".", ",", 1)
}

func (s *Server) repertoireDoc() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]interface{}, 0, len(s.events))
	for _, id := range s.events {
		events = append(events, s.repertoire[id])
	}
	count := strconv.Itoa(len(events))
	repertoires := map[string]interface{}{
		"number":    count,
		"page":      "1",
		"nbofpages": "1",
		"from":      "1",
		"to":        count,
	}
	if len(events) > 0 {
		repertoires["repertoire"] = events
	}
	return map[string]interface{}{"repertoires": repertoires}
}

func (s *Server) synchronizeDoc(eventID string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	sync := map[string]interface{}{
		"entry_count":   "0",
		"repertoire_id": eventID,
		"date":          time.Now().Format(dateLayout),
	}
	if records := s.tickets[eventID]; len(records) > 0 {
		sync["element"] = records
	}
	return map[string]interface{}{"synchronize": sync}
}
