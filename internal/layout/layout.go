// Package layout renders order snapshots into fixed-width comanda text.
// Rendering is pure: the same order, document type and paper width always
// produce the same bytes for a given Engine.
package layout

import (
	"fmt"
	"strconv"
	"strings"

	"comanda/internal/store"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// FeedLines is the number of blank lines appended for tear-off.
const FeedLines = 4

// Options configures an Engine.
type Options struct {
	// Locale is a BCP 47 tag, e.g. "pt-BR". It drives label translation,
	// decimal separator and thousands grouping.
	Locale string
	// CurrencySymbol is printed before every amount.
	CurrencySymbol string
}

// Engine renders comandas for one locale.
type Engine struct {
	printer *message.Printer
	symbol  string
}

// New creates an Engine. An empty locale means pt-BR and an empty symbol means "R$".
func New(opts Options) (*Engine, error) {
	if opts.Locale == "" {
		opts.Locale = "pt-BR"
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "R$"
	}

	tag, err := language.Parse(opts.Locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", opts.Locale, err)
	}

	cat, err := labels()
	if err != nil {
		return nil, err
	}

	return &Engine{
		printer: message.NewPrinter(tag, message.Catalog(cat)),
		symbol:  opts.CurrencySymbol,
	}, nil
}

// Money formats an amount in cents, e.g. "R$ 1.234,50" for pt-BR.
func (e *Engine) Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + e.symbol + " " + e.printer.Sprintf("%.2f", float64(cents)/100)
}

// Render lays out one document of the order for the given paper width.
func (e *Engine) Render(o *store.Order, doc store.DocumentType, widthMm int) string {
	w := Columns(widthMm)
	p := e.printer
	priced := doc != store.DocumentKitchen

	var lines []string
	add := func(ls ...string) { lines = append(lines, ls...) }

	for _, l := range Wrap(e.title(o, doc), w) {
		add(Center(l, w))
	}
	add(Center(p.Sprintf("Order #%s", strconv.Itoa(o.Number)), w))
	if !o.CreatedAt.IsZero() {
		add(Center(o.CreatedAt.Format("02/01/2006 15:04"), w))
	}
	add(rule(w))

	if o.CustomerName != "" {
		add(Wrap(p.Sprintf("Customer: %s", o.CustomerName), w)...)
	}
	if o.Channel == store.ChannelDelivery {
		if o.CustomerPhone != "" {
			add(Wrap(p.Sprintf("Phone: %s", o.CustomerPhone), w)...)
		}
		if o.DeliveryAddress != "" {
			add(Wrap(p.Sprintf("Address: %s", o.DeliveryAddress), w)...)
		}
	}
	if o.CustomerName != "" || o.Channel == store.ChannelDelivery {
		add(rule(w))
	}

	for _, it := range o.Items {
		label := fmt.Sprintf("%dx %s", it.Quantity, it.Name)
		if priced {
			add(Columnar(label, e.Money(it.TotalCents()), w)...)
			if it.Quantity > 1 {
				add("   " + p.Sprintf("each %s", e.Money(it.UnitPriceCents)))
			}
		} else {
			add(Wrap(label, w)...)
		}
		if it.Notes != "" {
			for _, l := range Wrap(it.Notes, w-4) {
				add("  > " + l)
			}
		}
	}

	if o.Notes != "" {
		add(rule(w))
		add(Wrap(p.Sprintf("Notes: %s", o.Notes), w)...)
	}

	if priced {
		add(rule(w))
		add(Columnar(p.Sprintf("Subtotal"), e.Money(o.SubtotalCents()), w)...)
		if o.DiscountCents != 0 {
			add(Columnar(p.Sprintf("Discount"), e.Money(-o.DiscountCents), w)...)
		}
		if o.Channel == store.ChannelDelivery || o.DeliveryFeeCents != 0 {
			add(Columnar(p.Sprintf("Delivery fee"), e.Money(o.DeliveryFeeCents), w)...)
		}
		add(Columnar(p.Sprintf("TOTAL"), e.Money(o.TotalCents()), w)...)
	}

	if doc == store.DocumentCustomer {
		add(rule(w))
		for _, l := range Wrap(p.Sprintf("Thank you for your order!"), w) {
			add(Center(l, w))
		}
	}

	for i := 0; i < FeedLines; i++ {
		add("")
	}

	return strings.Join(lines, "\n") + "\n"
}

func (e *Engine) title(o *store.Order, doc store.DocumentType) string {
	p := e.printer

	var head string
	switch doc {
	case store.DocumentKitchen:
		head = p.Sprintf("KITCHEN")
	case store.DocumentCashier:
		head = p.Sprintf("CASHIER")
	default:
		head = p.Sprintf("CUSTOMER COPY")
	}

	var channel string
	switch o.Channel {
	case store.ChannelTable:
		channel = p.Sprintf("TABLE %s", o.TableLabel)
	case store.ChannelDelivery:
		channel = p.Sprintf("DELIVERY")
	default:
		channel = p.Sprintf("COUNTER")
	}

	return strings.TrimSpace(head + " - " + channel)
}

// labels builds the translation catalog. English keys are the fallback.
func labels() (catalog.Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	ptBR := map[string]string{
		"KITCHEN":                   "COZINHA",
		"CASHIER":                   "CAIXA",
		"CUSTOMER COPY":             "VIA DO CLIENTE",
		"TABLE %s":                  "MESA %s",
		"DELIVERY":                  "ENTREGA",
		"COUNTER":                   "BALCAO",
		"Order #%s":                 "Pedido #%s",
		"Customer: %s":              "Cliente: %s",
		"Phone: %s":                 "Telefone: %s",
		"Address: %s":               "Endereco: %s",
		"each %s":                   "un. %s",
		"Notes: %s":                 "Obs: %s",
		"Subtotal":                  "Subtotal",
		"Discount":                  "Desconto",
		"Delivery fee":              "Taxa de entrega",
		"TOTAL":                     "TOTAL",
		"Thank you for your order!": "Obrigado pela preferencia!",
	}
	for key, msg := range ptBR {
		if err := b.SetString(language.BrazilianPortuguese, key, msg); err != nil {
			return nil, fmt.Errorf("failed to register label %q: %w", key, err)
		}
	}
	return b, nil
}
