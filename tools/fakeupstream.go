package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// A single local process standing in for TMDB, opensubtitles.org and subdl.
// Point the config at it with:
//
//	metadata.tmdb.base_url: http://localhost:8081/3
//	subtitles.opensubtitles_org.base_url: http://localhost:8081
//	subtitles.subdl.base_url: http://localhost:8081/subdl
//	subtitles.subdl.download_base_url: http://localhost:8081/subdl-dl

type fakeMovie struct {
	ID          int    `json:"id"`
	IMDBID      string `json:"imdb_id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Overview    string `json:"overview"`
}

var movies = []fakeMovie{
	{ID: 550, IMDBID: "tt0137523", Title: "Fight Club", ReleaseDate: "1999-10-15", Overview: "An insomniac office worker and a soap maker form an underground club."},
	{ID: 603, IMDBID: "tt0133093", Title: "The Matrix", ReleaseDate: "1999-03-30", Overview: "A hacker learns the true nature of reality."},
	{ID: 27205, IMDBID: "tt1375666", Title: "Inception", ReleaseDate: "2010-07-15", Overview: "A thief steals secrets through dream-sharing."},
}

var (
	movieRe    = regexp.MustCompile(`^/3/movie/(\d+)$`)
	listingRe  = regexp.MustCompile(`^/en/search/sublanguageid-([a-z,]+)/idmovie-(\d+)$`)
	downloadRe = regexp.MustCompile(`^/en/subtitleserve/sub/(\d+)$`)
)

var flags = map[string]struct{ flag, name string }{
	"eng": {"gb", "English"},
	"spa": {"es", "Spanish"},
	"fre": {"fr", "French"},
	"sin": {"lk", "Sinhalese"},
}

func main() {
	rand.Seed(time.Now().UnixNano())

	http.HandleFunc("/3/", tmdbHandler)
	http.HandleFunc("/en/", opensubtitlesHandler)
	http.HandleFunc("/subdl/", subdlHandler)
	http.HandleFunc("/subdl-dl/", subtitleFileHandler)

	fmt.Println("Fake upstream server starting on :8081")
	fmt.Println("TMDB under /3, opensubtitles.org under /en, subdl under /subdl")
	log.Fatal(http.ListenAndServe(":8081", nil))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func findMovie(match func(fakeMovie) bool) (fakeMovie, bool) {
	for _, m := range movies {
		if match(m) {
			return m, true
		}
	}
	return fakeMovie{}, false
}

func tmdbHandler(w http.ResponseWriter, r *http.Request) {
	log.Printf("TMDB request: %s", r.URL.Path)
	if r.URL.Query().Get("api_key") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"status_code": 7, "status_message": "Invalid API key"})
		return
	}

	switch {
	case r.URL.Path == "/3/configuration":
		writeJSON(w, http.StatusOK, map[string]interface{}{"images": map[string]string{"base_url": "http://image.tmdb.org/t/p/"}})
	case r.URL.Path == "/3/search/movie":
		q := strings.ToLower(r.URL.Query().Get("query"))
		results := []fakeMovie{}
		for _, m := range movies {
			if q != "" && strings.Contains(strings.ToLower(m.Title), q) {
				results = append(results, m)
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"page": 1, "results": results, "total_results": len(results)})
	case movieRe.MatchString(r.URL.Path):
		id := movieRe.FindStringSubmatch(r.URL.Path)[1]
		m, ok := findMovie(func(m fakeMovie) bool { return fmt.Sprint(m.ID) == id })
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"status_code": 34, "status_message": "The resource you requested could not be found."})
			return
		}
		writeJSON(w, http.StatusOK, m)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func opensubtitlesHandler(w http.ResponseWriter, r *http.Request) {
	log.Printf("opensubtitles.org request: %s", r.URL.Path)

	if m := downloadRe.FindStringSubmatch(r.URL.Path); m != nil {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="subtitle-%s.srt"`, m[1]))
		fmt.Fprint(w, fakeSRT("opensubtitles.org #"+m[1]))
		return
	}

	m := listingRe.FindStringSubmatch(r.URL.Path)
	if m == nil {
		if r.URL.Path == "/en" || r.URL.Path == "/en/" {
			fmt.Fprint(w, "<html><body>fake opensubtitles.org</body></html>")
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}
	movie, ok := findMovie(func(fm fakeMovie) bool { return strings.TrimPrefix(fm.IMDBID, "tt") == m[2] })
	if !ok {
		fmt.Fprint(w, `<html><body><div class="msg">No results found</div></body></html>`)
		return
	}

	langs := []string{"eng", "spa", "fre", "sin"}
	if m[1] != "all" {
		langs = strings.Split(m[1], ",")
	}

	var rows []string
	for i := 0; i < 12; i++ {
		code := langs[rand.Intn(len(langs))]
		f, ok := flags[code]
		if !ok {
			f = flags["eng"]
		}
		id := 10000000 + rand.Intn(9000000)
		release := fmt.Sprintf("%s.%s.1080p.WEB-DL", strings.ReplaceAll(movie.Title, " ", "."), movie.ReleaseDate[:4])
		rows = append(rows, fmt.Sprintf(`<tr id="name%d"><td id="main%d"><strong><a href="/en/subtitles/%d/x">%s</a></strong></td>`+
			`<td><span class="flag %s" title="%s"></span></td><td><a href="/en/subtitleserve/sub/%d">%dx</a></td>`+
			`<td><span class="rating">%.1f</span></td><td><a href="/en/profile/iduser-%d">uploader%d</a></td></tr>`,
			id, id, id, release, f.flag, f.name, id, rand.Intn(50000), rand.Float64()*10, i, i))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body><table id="search_results"><tbody>%s</tbody></table></body></html>`, strings.Join(rows, "\n"))
}

func subdlHandler(w http.ResponseWriter, r *http.Request) {
	log.Printf("subdl request: %s?%s", r.URL.Path, r.URL.RawQuery)
	q := r.URL.Query()
	if q.Get("api_key") == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": false, "error": "API key is required"})
		return
	}

	movie, ok := findMovie(func(m fakeMovie) bool {
		return strings.EqualFold(m.Title, q.Get("film_name")) || m.IMDBID == q.Get("imdb_id")
	})
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": false, "error": "can't find movie"})
		return
	}

	lang := q.Get("languages")
	if lang == "" {
		lang = "EN"
	}
	var subs []map[string]interface{}
	for i := 0; i < 4; i++ {
		id := 3000000 + rand.Intn(100000)
		subs = append(subs, map[string]interface{}{
			"sd_id":        id,
			"release_name": fmt.Sprintf("%s.%s.BluRay.x264-GRP%d", strings.ReplaceAll(movie.Title, " ", "."), movie.ReleaseDate[:4], i),
			"lang":         strings.ToLower(lang),
			"author":       fmt.Sprintf("subdl-user%d", i),
			"url":          fmt.Sprintf("/subtitle/%d-%d.zip", id, movie.ID),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": true, "subtitles": subs})
}

func subtitleFileHandler(w http.ResponseWriter, r *http.Request) {
	log.Printf("subdl download: %s", r.URL.Path)
	fmt.Fprint(w, fakeSRT("subdl "+strings.TrimPrefix(r.URL.Path, "/subdl-dl/")))
}

func fakeSRT(source string) string {
	return fmt.Sprintf("1\n00:00:01,000 --> 00:00:04,000\nFake subtitle served by %s\n\n2\n00:00:05,000 --> 00:00:08,000\nGenerated at %s\n\n",
		source, time.Now().Format(time.RFC3339))
}
