package session

import (
	"time"

	"github.com/mos9527/librespot-dl/downloader"
)

type albumResponse struct {
	Name  string `json:"name"`
	Discs []struct {
		Number int `json:"number"`
		Tracks []struct {
			GID string `json:"gid"`
		} `json:"tracks"`
	} `json:"discs"`
}

func (r *albumResponse) toAlbum() *downloader.Album {
	album := &downloader.Album{Name: r.Name}
	for _, d := range r.Discs {
		disc := downloader.Disc{Number: d.Number}
		for _, t := range d.Tracks {
			disc.TrackGIDs = append(disc.TrackGIDs, t.GID)
		}
		album.Discs = append(album.Discs, disc)
	}
	return album
}

type playlistResponse struct {
	Attributes struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"attributes"`
	Contents struct {
		Items []struct {
			URI string `json:"uri"`
		} `json:"items"`
	} `json:"contents"`
}

func (r *playlistResponse) toPlaylist() *downloader.Playlist {
	p := &downloader.Playlist{
		Name:        r.Attributes.Name,
		Description: r.Attributes.Description,
	}
	for _, item := range r.Contents.Items {
		p.ItemURIs = append(p.ItemURIs, item.URI)
	}
	return p
}

type artist struct {
	Name string `json:"name"`
}

type trackResponse struct {
	Name       string   `json:"name"`
	Artists    []artist `json:"artists"`
	Number     int      `json:"number"`
	DiscNumber int      `json:"disc_number"`
	DurationMs int64    `json:"duration"`
	Album      struct {
		Name    string   `json:"name"`
		Artists []artist `json:"artists"`
		Label   string   `json:"label"`
		Date    struct {
			Year int `json:"year"`
		} `json:"date"`
		CoverGroup struct {
			Images []struct {
				FileID string `json:"file_id"`
			} `json:"image"`
		} `json:"cover_group"`
	} `json:"album"`
	Files []struct {
		FileID string `json:"file_id"`
		Format string `json:"format"`
	} `json:"files"`
}

func names(artists []artist) []string {
	out := make([]string, 0, len(artists))
	for _, a := range artists {
		out = append(out, a.Name)
	}
	return out
}

// toMetadata maps the catalog record onto tag fields; the album label is
// used as the copyright line
func (r *trackResponse) toMetadata() downloader.TrackMetadata {
	return downloader.TrackMetadata{
		Title:        r.Name,
		Artists:      names(r.Artists),
		AlbumArtists: names(r.Album.Artists),
		Album:        r.Album.Name,
		TrackNumber:  r.Number,
		DiscNumber:   r.DiscNumber,
		ReleaseYear:  r.Album.Date.Year,
		Copyright:    r.Album.Label,
		Duration:     time.Duration(r.DurationMs) * time.Millisecond,
	}
}

func (r *trackResponse) coverFileID() string {
	if len(r.Album.CoverGroup.Images) == 0 {
		return ""
	}
	return r.Album.CoverGroup.Images[0].FileID
}
