// ABOUTME: Contact CLI commands
// ABOUTME: Lists and adds the contacts deals are attached to
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/pipeboard/config"
	"github.com/harperreed/pipeboard/models"
	"github.com/rs/zerolog"
)

// ListContactsCommand lists contacts, optionally matching a query.
func ListContactsCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("contacts", flag.ExitOnError)
	query := fs.String("query", "", "Search by name, email or company")
	_ = fs.Parse(args)

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	contacts, err := client.ListContacts(ctx, *query)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}
	if len(contacts) == 0 {
		_, _ = fmt.Fprintln(stdout, "No contacts found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tEMAIL\tCOMPANY\tSTATUS\tID")
	_, _ = fmt.Fprintln(w, "----\t-----\t-------\t------\t--")
	for _, c := range contacts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, orDash(c.Email), orDash(c.Company), orDash(c.Status), c.ID)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(stdout, "\nTotal: %d contact(s)\n", len(contacts))
	return nil
}

// AddContactCommand creates a contact.
func AddContactCommand(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("add-contact", flag.ExitOnError)
	name := fs.String("name", "", "Contact name (required)")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	status := fs.String("status", "lead", "Lifecycle status (lead, prospect, customer, churned)")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	contact, err := client.CreateContact(ctx, models.Contact{
		Name:    *name,
		Email:   *email,
		Phone:   *phone,
		Company: *company,
		Status:  *status,
	})
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "✓ Contact created: %s (ID: %s)\n", contact.Name, contact.ID)
	if contact.Company != "" {
		_, _ = fmt.Fprintf(stdout, "  Company: %s\n", contact.Company)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
