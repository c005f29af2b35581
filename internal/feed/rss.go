// Package feed decodes syndication feeds from regulatory sources.
package feed

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// Item is one entry from an RSS channel. PubDate is the feed-native
// timestamp string; date normalization happens downstream.
type Item struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

type rss struct {
	Channel struct {
		Items []Item `xml:"item"`
	} `xml:"channel"`
}

// ParseRSS decodes the <item> entries of an RSS document. Non-UTF-8
// charsets declared in the XML prolog are decoded via htmlindex. Title and
// link whitespace is trimmed; the XML decoder already unwraps CDATA.
func ParseRSS(r io.Reader) ([]Item, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "feed: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var doc rss
	if err := decoder.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "feed: decode rss")
	}

	items := make([]Item, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		it.Title = strings.TrimSpace(it.Title)
		it.Link = strings.TrimSpace(it.Link)
		it.PubDate = strings.TrimSpace(it.PubDate)
		if it.Title == "" || it.Link == "" {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}
