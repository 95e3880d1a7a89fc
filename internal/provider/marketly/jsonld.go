package marketly

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/pricehound/pricehound/internal/pricing"
)

// extractJSONLD walks the document and collects offers from every
// application/ld+json script tag.
func extractJSONLD(htmlContent string) ([]pricing.RawOffer, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var offers []pricing.RawOffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key == "type" && attr.Val == "application/ld+json" && n.FirstChild != nil {
					if parsed, err := parseJSONLD(n.FirstChild.Data); err == nil {
						offers = append(offers, parsed...)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return offers, nil
}

type ldItem struct {
	Type            string      `json:"@type"`
	Name            string      `json:"name"`
	URL             string      `json:"url"`
	Image           any         `json:"image"`
	Offers          *ldOffers   `json:"offers"`
	ItemListElement []ldElement `json:"itemListElement"`
}

type ldOffers struct {
	Type          string      `json:"@type"`
	Price         json.Number `json:"price"`
	PriceCurrency string      `json:"priceCurrency"`
	Availability  string      `json:"availability"`
	URL           string      `json:"url"`
	Seller        *ldSeller   `json:"seller"`
	Offers        []ldOffers  `json:"offers"` // AggregateOffer nests plain offers
}

type ldSeller struct {
	Name string `json:"name"`
}

type ldElement struct {
	Item *ldItem `json:"item"`
}

func parseJSONLD(data string) ([]pricing.RawOffer, error) {
	data = strings.TrimSpace(data)

	var item ldItem
	if err := json.Unmarshal([]byte(data), &item); err == nil {
		if offers := itemOffers(&item); len(offers) > 0 {
			return offers, nil
		}
		if item.Type == "ItemList" {
			var offers []pricing.RawOffer
			for _, elem := range item.ItemListElement {
				if elem.Item != nil {
					offers = append(offers, itemOffers(elem.Item)...)
				}
			}
			return offers, nil
		}
		return nil, nil
	}

	var items []ldItem
	if err := json.Unmarshal([]byte(data), &items); err == nil {
		var offers []pricing.RawOffer
		for i := range items {
			offers = append(offers, itemOffers(&items[i])...)
		}
		return offers, nil
	}

	return nil, fmt.Errorf("no product data in JSON-LD")
}

func itemOffers(item *ldItem) []pricing.RawOffer {
	if item.Type != "Product" || item.Offers == nil {
		return nil
	}

	flat := []ldOffers{*item.Offers}
	if item.Offers.Type == "AggregateOffer" && len(item.Offers.Offers) > 0 {
		flat = item.Offers.Offers
	}

	var out []pricing.RawOffer
	for _, o := range flat {
		store := "Marketly"
		if o.Seller != nil && o.Seller.Name != "" {
			store = o.Seller.Name
		}
		link := o.URL
		if link == "" {
			link = item.URL
		}
		out = append(out, pricing.RawOffer{
			Store:    store,
			Price:    o.Price.String(),
			Currency: o.PriceCurrency,
			URL:      link,
			Image:    firstImage(item.Image),
			Product:  item.Name,
			InStock:  strings.HasSuffix(o.Availability, "InStock"),
		})
	}
	return out
}

func firstImage(image any) string {
	switch img := image.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
