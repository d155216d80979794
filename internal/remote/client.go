// Package remote implements the optional fingerprint service clients:
// uploading one song's fingerprint at a time behind a WorkOption
// cursor, and querying the service with a landmark list. Both payloads
// are gzip-wrapped JSON posted with Content-Type gzip/json.
package remote

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hkg36/audio-freq/internal/database"
	"github.com/hkg36/audio-freq/internal/dsp"
)

// uploadCursor is the WorkOption row tracking the last uploaded song.
const uploadCursor = "lastUploadSong"

type Client struct {
	baseURL    string
	uploadPath string
	searchPath string
	http       *http.Client
}

func NewClient(baseURL, uploadPath, searchPath string) *Client {
	return &Client{
		baseURL:    baseURL,
		uploadPath: uploadPath,
		searchPath: searchPath,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

type checkPayload struct {
	Freq   int `json:"freq"`
	Offset int `json:"offset"`
}

type anchorPayload struct {
	Freq   int            `json:"freq"`
	Time   int            `json:"time"`
	Checks []checkPayload `json:"checks"`
}

type uploadPayload struct {
	Song    string          `json:"song"`
	Anchors []anchorPayload `json:"anchors"`
}

type uploadResponse struct {
	Errno int    `json:"errno"`
	Error string `json:"error"`
	Data  struct {
		SongID   int64  `json:"song_id"`
		SongName string `json:"song_name"`
	} `json:"data"`
}

// UploadNext uploads the first song past the cursor and advances the
// cursor on success. It returns the uploaded song id, or 0 when every
// song has already been uploaded.
func (c *Client) UploadNext(store database.Store) (int64, error) {
	cursor, _, err := store.GetOption(uploadCursor)
	if err != nil {
		return 0, err
	}

	song, err := store.SongAfter(cursor)
	if err != nil {
		return 0, err
	}
	if song == nil {
		return 0, nil
	}

	anchors, err := store.AnchorsBySong(song.ID)
	if err != nil {
		return 0, err
	}

	payload := uploadPayload{Song: song.Name, Anchors: make([]anchorPayload, 0, len(anchors))}
	for _, a := range anchors {
		checks, err := store.TargetsByAnchor(a.ID)
		if err != nil {
			return 0, err
		}
		ap := anchorPayload{Freq: a.Freq, Time: a.Time, Checks: make([]checkPayload, 0, len(checks))}
		for _, ch := range checks {
			ap.Checks = append(ap.Checks, checkPayload{Freq: ch.Freq, Offset: ch.TimeOffset})
		}
		payload.Anchors = append(payload.Anchors, ap)
	}

	var resp uploadResponse
	if err := c.post(c.uploadPath, payload, &resp); err != nil {
		return 0, err
	}
	if resp.Errno != 0 {
		return 0, fmt.Errorf("upload rejected by service: errno %d: %s", resp.Errno, resp.Error)
	}

	if err := store.SetOption(uploadCursor, song.ID); err != nil {
		return 0, err
	}
	return song.ID, nil
}

// SongResult is one ranked entry from the query service.
type SongResult struct {
	SongID     int64  `json:"song_id"`
	MatchCount int    `json:"count"`
	Filename   string `json:"filename"`
}

type searchResponse struct {
	Errno int          `json:"errno"`
	Error string       `json:"error"`
	Data  []SongResult `json:"data"`
}

// Search posts the query landmarks and returns the service ranking.
func (c *Client) Search(landmarks []dsp.Landmark) ([]SongResult, error) {
	type freqPayload struct {
		Freq int `json:"freq"`
		Time int `json:"time"`
	}
	payload := struct {
		Data []freqPayload `json:"data"`
	}{Data: make([]freqPayload, 0, len(landmarks))}
	for _, l := range landmarks {
		payload.Data = append(payload.Data, freqPayload{Freq: l.Freq, Time: l.Time})
	}

	var resp searchResponse
	if err := c.post(c.searchPath, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Errno != 0 {
		return nil, fmt.Errorf("search rejected by service: errno %d: %s", resp.Errno, resp.Error)
	}
	return resp.Data, nil
}

func (c *Client) post(path string, payload, out interface{}) error {
	var body bytes.Buffer
	zw := gzip.NewWriter(&body)
	if err := json.NewEncoder(zw).Encode(payload); err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "gzip/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach fingerprint service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fingerprint service returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode service response: %w", err)
	}
	return nil
}
