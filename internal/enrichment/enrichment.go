package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
)

const (
	DefaultGoogleBooksURL = "https://www.googleapis.com/books/v1"
	DefaultOpenLibraryURL = "https://openlibrary.org"

	sourceGoogleBooks = "google_books"
	sourceOpenLibrary = "open_library"
)

// ErrNotFound is returned when no catalog knows the title
var ErrNotFound = errors.New("no matching book found")

// Client looks up publication details for detected titles
type Client struct {
	HTTPClient     *http.Client
	GoogleBooksURL string
	OpenLibraryURL string
	GoogleBooksKey string
}

// New creates a client against the public Google Books and Open Library APIs
func New(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTPClient:     &http.Client{Timeout: timeout},
		GoogleBooksURL: DefaultGoogleBooksURL,
		OpenLibraryURL: DefaultOpenLibraryURL,
		GoogleBooksKey: apiKey,
	}
}

// googleBooksResponse is the subset of the volumes search we read
type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Subtitle            string   `json:"subtitle"`
			Authors             []string `json:"authors"`
			Publisher           string   `json:"publisher"`
			PublishedDate       string   `json:"publishedDate"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// openLibrarySearchResponse is the subset of search.json we read
type openLibrarySearchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Title            string   `json:"title"`
		AuthorName       []string `json:"author_name"`
		ISBN             []string `json:"isbn"`
		Publisher        []string `json:"publisher"`
		FirstPublishYear int      `json:"first_publish_year"`
	} `json:"docs"`
}

// Lookup returns the details of the best match for title and author.
// Google Books is asked first; Open Library is the fallback.
func (c *Client) Lookup(ctx context.Context, title, author string) (*models.BookDetails, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}

	details, err := c.lookupGoogleBooks(ctx, title, author)
	if err == nil {
		c.fillEdition(ctx, details)
		return details, nil
	}
	slog.Debug("Google Books lookup failed, trying Open Library", "title", title, "err", err)

	details, olErr := c.lookupOpenLibrary(ctx, title, author)
	if olErr == nil {
		c.fillEdition(ctx, details)
		return details, nil
	}

	if errors.Is(err, ErrNotFound) && errors.Is(olErr, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, title)
	}
	return nil, fmt.Errorf("lookup %q: google books: %v; open library: %w", title, err, olErr)
}

func (c *Client) lookupGoogleBooks(ctx context.Context, title, author string) (*models.BookDetails, error) {
	q := "intitle:" + title
	if author = strings.TrimSpace(author); author != "" {
		q += " inauthor:" + author
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", "1")
	if c.GoogleBooksKey != "" {
		params.Set("key", c.GoogleBooksKey)
	}

	var result googleBooksResponse
	if err := c.getJSON(ctx, strings.TrimRight(c.GoogleBooksURL, "/")+"/volumes?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	info := result.Items[0].VolumeInfo
	details := &models.BookDetails{
		Title:           info.Title,
		Authors:         strings.Join(info.Authors, ", "),
		Publisher:       info.Publisher,
		PublicationDate: info.PublishedDate,
		Subtitle:        info.Subtitle,
		Source:          sourceGoogleBooks,
	}

	// Prefer ISBN-13 over ISBN-10 when both are listed
	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			details.ISBN = id.Identifier
		case "ISBN_10":
			if details.ISBN == "" {
				details.ISBN = id.Identifier
			}
		}
	}

	return details, nil
}

func (c *Client) lookupOpenLibrary(ctx context.Context, title, author string) (*models.BookDetails, error) {
	params := url.Values{}
	params.Set("title", title)
	if author = strings.TrimSpace(author); author != "" {
		params.Set("author", author)
	}
	params.Set("limit", "1")

	var result openLibrarySearchResponse
	if err := c.getJSON(ctx, strings.TrimRight(c.OpenLibraryURL, "/")+"/search.json?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	if len(result.Docs) == 0 {
		return nil, ErrNotFound
	}

	doc := result.Docs[0]
	details := &models.BookDetails{
		Title:   doc.Title,
		Authors: strings.Join(doc.AuthorName, ", "),
		Source:  sourceOpenLibrary,
	}
	if len(doc.ISBN) > 0 {
		details.ISBN = doc.ISBN[0]
	}
	if len(doc.Publisher) > 0 {
		details.Publisher = doc.Publisher[0]
	}
	if doc.FirstPublishYear > 0 {
		details.PublicationDate = strconv.Itoa(doc.FirstPublishYear)
	}
	return details, nil
}

// fillEdition reads the edition name from the Open Library edition record for
// the matched ISBN. Neither search API reports one.
func (c *Client) fillEdition(ctx context.Context, details *models.BookDetails) {
	if details.ISBN == "" {
		return
	}

	var edition struct {
		EditionName string `json:"edition_name"`
	}
	endpoint := strings.TrimRight(c.OpenLibraryURL, "/") + "/isbn/" + url.PathEscape(details.ISBN) + ".json"
	if err := c.getJSON(ctx, endpoint, &edition); err != nil {
		slog.Debug("No edition record", "isbn", details.ISBN, "err", err)
		return
	}
	details.Edition = edition.EditionName
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", req.URL.Host, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// EnrichAll looks up every distinct title in books, with at most concurrency
// requests in flight. A failed lookup is recorded in that entry's Error and
// does not affect the others. Results follow the first-seen order of titles and
// carry the detected title, not the catalog's spelling of it.
func (c *Client) EnrichAll(ctx context.Context, books []models.BookDetection, concurrency int) []models.BookDetails {
	if concurrency <= 0 {
		concurrency = 1
	}

	var unique []models.BookDetection
	seen := make(map[string]bool)
	for _, book := range books {
		if seen[book.Title] {
			continue
		}
		seen[book.Title] = true
		unique = append(unique, book)
	}

	results := make([]models.BookDetails, len(unique))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i, book := range unique {
		wg.Add(1)
		go func(i int, book models.BookDetection) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			details, err := c.Lookup(ctx, book.Title, book.Author)
			if err != nil {
				slog.Warn("Failed to enrich book", "title", book.Title, "err", err)
				results[i] = models.BookDetails{Title: book.Title, Error: err.Error()}
				return
			}
			details.Title = book.Title
			results[i] = *details
		}(i, book)
	}

	wg.Wait()
	return results
}
