package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/internal/app"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/backup"
	"github.com/JailsonsouzaStarCityCorp/gerenciador-de-biblioteca/pkg/domain"
)

func (c *cli) bookCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "book",
		Aliases: []string{"books"},
		Short:   "Manage the book catalog",
	}
	cmd.AddCommand(c.bookAddCommand(), c.bookListCommand(), c.bookSearchCommand(), c.bookShowCommand(), c.bookDeleteCommand())
	return cmd
}

func (c *cli) bookAddCommand() *cobra.Command {
	var in domain.BookInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			b, err := a.Books.AddBook(in)
			if err != nil {
				return err
			}
			c.out.Success("Book %q added with id %d.", b.Title, b.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "book title")
	cmd.Flags().StringVar(&in.Author, "author", "", "book author")
	cmd.Flags().IntVar(&in.Year, "year", 0, "publication year")
	cmd.Flags().StringVar(&in.Category, "category", "", "book category")
	for _, f := range []string{"title", "author", "year", "category"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (c *cli) bookListCommand() *cobra.Command {
	var (
		available bool
		category  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			var books []domain.Book
			switch {
			case category != "":
				books, err = a.Books.ListBooksByCategory(category)
			case available:
				books, err = a.Books.ListAvailableBooks()
			default:
				books, err = a.Books.ListBooks()
			}
			if err != nil {
				return err
			}
			if available && category != "" {
				books = onlyAvailable(books)
			}
			c.out.Books(books)
			return nil
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "only books not on loan")
	cmd.Flags().StringVar(&category, "category", "", "filter by category (substring, case-insensitive)")
	return cmd
}

func onlyAvailable(books []domain.Book) []domain.Book {
	out := books[:0]
	for _, b := range books {
		if b.IsAvailable {
			out = append(out, b)
		}
	}
	return out
}

func (c *cli) bookSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Search books by title or author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.services()
			if err != nil {
				return err
			}
			books, err := a.Books.SearchBooks(args[0])
			if err != nil {
				return err
			}
			c.out.Books(books)
			return nil
		},
	}
}

func (c *cli) bookShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.services()
			if err != nil {
				return err
			}
			b, ok, err := a.Books.GetBook(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("book %d: %w", id, app.ErrNotFound)
			}
			c.out.Books([]domain.Book{b})
			return nil
		},
	}
}

func (c *cli) bookDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a book that is not on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.services()
			if err != nil {
				return err
			}
			b, ok, err := a.Books.GetBook(id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("book %d: %w", id, app.ErrNotFound)
			}
			yes, err := c.confirm(fmt.Sprintf("Delete book %q?", b.Title), "Its returned-loan history is removed too.")
			if err != nil {
				return err
			}
			if !yes {
				return backup.ErrCancelled
			}
			if err := a.Books.DeleteBook(id); err != nil {
				return err
			}
			c.out.Success("Book %d deleted.", id)
			return nil
		},
	}
}
