// Package invoice renders order invoices for download and email delivery from
// one set of templates.
package invoice

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"bakery-service/internal/auth"
	"bakery-service/internal/mailer"
	"bakery-service/internal/orders"
	"bakery-service/internal/users"
	"bakery-service/pkg/apperr"

	"github.com/shopspring/decimal"
)

//go:embed templates
var templateFS embed.FS

var funcs = map[string]any{
	"money": func(d decimal.Decimal) string { return "₹" + d.StringFixed(2) },
}

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplate  = texttemplate.Must(texttemplate.New("invoice.txt.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/invoice.txt.tmpl"))
)

type Company struct {
	Name      string
	LegalName string
	Street    string
	CityLine  string
}

var DefaultCompany = Company{
	Name:      "Bakery",
	LegalName: "Bakery, Inc.",
	Street:    "123 Bakery Street",
	CityLine:  "City, State ZIP",
}

type Orders interface {
	Order(ctx context.Context, id string) (orders.Order, error)
}

type Users interface {
	UserByID(ctx context.Context, id string) (users.User, error)
}

type Sender interface {
	Send(ctx context.Context, m mailer.Message) error
}

type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// Document is everything a template needs to lay out one invoice.
type Document struct {
	OrderID       string
	Number        string
	Date          string
	Company       Company
	Customer      users.Profile
	Address       orders.Address
	PaymentMethod string
	PaymentStatus string
	Lines         []Line
	ShowBreakdown bool
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

func (d Document) AddressLine() string {
	var parts []string
	for _, p := range []string{d.Address.Street, d.Address.City, d.Address.State, d.Address.PostalCode, d.Address.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "No address provided"
	}
	return strings.Join(parts, ", ")
}

type Conf struct {
	orders  Orders
	users   Users
	catalog orders.Catalog
	sender  Sender
	company Company
}

func NewConf(o Orders, u Users, catalog orders.Catalog, sender Sender) (*Conf, error) {
	if o == nil || u == nil || catalog == nil {
		return nil, fmt.Errorf("invoice needs orders, users and catalog")
	}
	if sender == nil {
		return nil, fmt.Errorf("invoice sender is nil")
	}
	return &Conf{orders: o, users: u, catalog: catalog, sender: sender, company: DefaultCompany}, nil
}

// Download renders the invoice as an HTML attachment. Only the order's owner
// or an admin may fetch it.
func (c *Conf) Download(ctx context.Context, p auth.Principal, orderID string) (string, []byte, error) {
	o, err := c.orders.Order(ctx, orderID)
	if err != nil {
		return "", nil, err
	}
	if !p.Can(auth.CapabilityAdmin) && o.UserID != p.Subject {
		return "", nil, apperr.Forbidden("You are not authorized to access this order")
	}

	doc, err := c.gather(ctx, o)
	if err != nil {
		return "", nil, err
	}
	body, err := RenderHTML(doc, false)
	if err != nil {
		return "", nil, apperr.Upstream("Failed to generate invoice", err)
	}
	return fmt.Sprintf("invoice-%s.html", o.ID), body, nil
}

// Send emails the invoice to the order's owner and returns the recipient.
func (c *Conf) Send(ctx context.Context, orderID string) (string, error) {
	o, err := c.orders.Order(ctx, orderID)
	if err != nil {
		return "", err
	}
	doc, err := c.gather(ctx, o)
	if err != nil {
		return "", err
	}

	html, err := RenderHTML(doc, true)
	if err != nil {
		return "", apperr.Upstream("Error sending invoice", err)
	}
	text, err := RenderText(doc)
	if err != nil {
		return "", apperr.Upstream("Error sending invoice", err)
	}

	err = c.sender.Send(ctx, mailer.Message{
		To:      doc.Customer.Email,
		Subject: "Order Invoice #" + o.ID,
		Text:    string(text),
		HTML:    string(html),
	})
	if err != nil {
		return "", apperr.Upstream("Error sending invoice", err)
	}
	return doc.Customer.Email, nil
}

// Gather loads the order and assembles its document.
func (c *Conf) Gather(ctx context.Context, orderID string) (Document, error) {
	o, err := c.orders.Order(ctx, orderID)
	if err != nil {
		return Document{}, err
	}
	return c.gather(ctx, o)
}

func (c *Conf) gather(ctx context.Context, o orders.Order) (Document, error) {
	u, err := c.users.UserByID(ctx, o.UserID)
	if err != nil {
		return Document{}, err
	}

	names := orders.ProductNames(ctx, c.catalog, o.Items)
	lines := make([]Line, 0, len(o.Items))
	sum := decimal.Zero
	for _, it := range o.Items {
		total := it.LineTotal()
		sum = sum.Add(total)
		lines = append(lines, Line{
			Name:      names[it.ProductID],
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Total:     total,
		})
	}

	// orders stored before pricing was recorded only carry line prices
	total := o.Amount
	if total.IsZero() {
		total = sum
	}

	status := "Pending"
	if o.Payment {
		status = "Paid"
	}
	name := u.Name
	if name == "" {
		name = "Customer"
	}

	number := o.ID
	if len(number) > 8 {
		number = number[:8]
	}

	return Document{
		OrderID:       o.ID,
		Number:        number,
		Date:          o.Date.Format("02 Jan 2006"),
		Company:       c.company,
		Customer:      users.Profile{ID: u.ID, Name: name, Email: u.Email},
		Address:       o.Address,
		PaymentMethod: strings.ToUpper(o.PaymentMethod),
		PaymentStatus: status,
		Lines:         lines,
		ShowBreakdown: !o.Subtotal.IsZero(),
		Subtotal:      o.Subtotal,
		Shipping:      o.ShippingFee,
		Tax:           o.Tax,
		Total:         total,
	}, nil
}

// RenderHTML renders the standalone download page, or the email body when
// email is set. Both embed the same invoice block.
func RenderHTML(doc Document, email bool) ([]byte, error) {
	name := "download"
	if email {
		name = "email"
	}
	var buf bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&buf, name, doc); err != nil {
		return nil, fmt.Errorf("rendering %s invoice: %w", name, err)
	}
	return buf.Bytes(), nil
}

func RenderText(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := textTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("rendering text invoice: %w", err)
	}
	return buf.Bytes(), nil
}
