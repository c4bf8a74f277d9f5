// Command mythstub serves a fixed Dvr/GetRecordedList document for
// integration tests.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

type program struct {
	Title       string            `json:"Title"`
	SubTitle    string            `json:"SubTitle"`
	Category    string            `json:"Category"`
	Description string            `json:"Description"`
	StartTime   string            `json:"StartTime"`
	EndTime     string            `json:"EndTime"`
	FileName    string            `json:"FileName"`
	FileSize    string            `json:"FileSize"`
	Inetref     string            `json:"Inetref"`
	Channel     map[string]string `json:"Channel"`
	Recording   map[string]string `json:"Recording"`
}

func main() {
	addr := getenv("MYTHSTUB_ADDR", ":6544")
	version := getenv("MYTHSTUB_VERSION", "0.28.20160309-1")

	programs := fixtures(time.Now().UTC())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /Dvr/GetRecordedList", func(w http.ResponseWriter, r *http.Request) {
		list := programs
		if n, err := strconv.Atoi(r.URL.Query().Get("Count")); err == nil && n > 0 && n < len(list) {
			list = list[:n]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ProgramList": map[string]any{
				"StartIndex":     "0",
				"Count":          strconv.Itoa(len(list)),
				"TotalAvailable": strconv.Itoa(len(programs)),
				"Version":        version,
				"Programs":       list,
			},
		})
	})

	log.Printf("mythtv stub listening on %s (version %s)", addr, version)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("listen %s: %v", addr, err)
	}
}

func fixtures(now time.Time) []program {
	at := func(d time.Duration) string { return now.Add(d).Format("2006-01-02T15:04:05Z") }
	rec := func(title, subtitle, category, chanID, channel string, start, end time.Duration, group string) program {
		return program{
			Title:     title,
			SubTitle:  subtitle,
			Category:  category,
			StartTime: at(start),
			EndTime:   at(end),
			FileName:  chanID + "_" + now.Add(start).Format("20060102150405") + ".ts",
			FileSize:  "1073741824",
			Channel:   map[string]string{"ChanId": chanID, "ChannelName": channel},
			Recording: map[string]string{
				"StartTs":      at(start),
				"EndTs":        at(end),
				"RecGroup":     group,
				"StorageGroup": "Default",
			},
		}
	}
	return []program{
		rec("Sherlock Holmes - A Scandal in Belgravia", "", "Drama", "1001", "BBC One", -72*time.Hour, -70*time.Hour, "Default"),
		rec("Sherlock Holmes - The Hounds of Baskerville", "", "Drama", "1001", "BBC One", -48*time.Hour, -46*time.Hour, "Default"),
		rec("Nature Documentary", "Oceans", "Documentary", "1002", "BBC Two", -24*time.Hour, -23*time.Hour, "Default"),
		rec("News", "Evening edition", "News", "1003", "BBC News", -30*time.Minute, 0, "Default"),
		rec("Old Movie", "", "Movie", "1004", "Film4", -96*time.Hour, -94*time.Hour, "Deleted"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
