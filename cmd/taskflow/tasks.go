package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/tasks"

	"github.com/spf13/cobra"
)

func parseDue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: use YYYY-MM-DD", s)
	}
	return &d, nil
}

func addCmd(a *app) *cobra.Command {
	var (
		description string
		priority    string
		due         string
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := parseDue(due)
			if err != nil {
				return err
			}

			return a.withStore(cmd.Context(), func(store *tasks.Store) error {
				task, err := store.Add(cmd.Context(), models.TaskFormData{
					Title:       strings.Join(args, " "),
					Description: description,
					Priority:    models.Priority(priority),
					DueDate:     dueDate,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added %s\n", task.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(models.PriorityMedium), "priority (high, medium, low)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")

	return cmd
}

func listCmd(a *app) *cobra.Command {
	var (
		filters models.TaskFilters
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := filters.Normalize()
			if err := f.Validate(); err != nil {
				return err
			}

			return a.withStore(cmd.Context(), func(store *tasks.Store) error {
				list := store.Visible(f)
				if asJSON {
					enc := json.NewEncoder(a.out)
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}
				printTasks(a.out, list, time.Now())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filters.Search, "search", "s", "", "match title or description")
	cmd.Flags().StringVarP((*string)(&filters.Priority), "priority", "p", "all", "priority filter (all, high, medium, low)")
	cmd.Flags().StringVar((*string)(&filters.Status), "status", "all", "status filter (all, pending, completed)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")

	return cmd
}

func printTasks(out io.Writer, list []models.Task, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No tasks")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tPRIORITY\tDUE\tTITLE")
	for _, t := range list {
		done := " "
		if t.Completed {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format(time.DateOnly)
			if !t.Completed && tasks.IsOverdue(*t.DueDate, now) {
				due += " (overdue)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, done, t.Priority, due, t.Title)
	}
	w.Flush()
}

func doneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "done [id]",
		Aliases: []string{"toggle"},
		Short:   "Toggle a task between completed and pending",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *tasks.Store) error {
				task, err := store.Toggle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				state := "pending"
				if task.Completed {
					state = "completed"
				}
				fmt.Fprintf(a.out, "%s is now %s\n", task.ID, state)
				return nil
			})
		},
	}
}

func editCmd(a *app) *cobra.Command {
	var (
		title       string
		description string
		priority    string
		due         string
		clearDue    bool
	)

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				p := models.Priority(priority)
				patch.Priority = &p
			}
			if flags.Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				patch.DueDate = d
			}
			patch.ClearDueDate = clearDue
			if patch.Empty() {
				return fmt.Errorf("nothing to change")
			}

			return a.withStore(cmd.Context(), func(store *tasks.Store) error {
				task, err := store.Update(cmd.Context(), args[0], patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Updated %s\n", task.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")

	return cmd
}

func rmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *tasks.Store) error {
				if err := store.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func clearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every completed task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *tasks.Store) error {
				n, err := store.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Cleared %d completed task(s)\n", n)
				return nil
			})
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *tasks.Store) error {
				stats := store.Stats(time.Now())
				if asJSON {
					return json.NewEncoder(a.out).Encode(stats)
				}
				fmt.Fprintf(a.out, "Total:      %d\n", stats.Total)
				fmt.Fprintf(a.out, "Completed:  %d (%d%%)\n", stats.Completed, stats.CompletionRate)
				fmt.Fprintf(a.out, "Pending:    %d\n", stats.Pending)
				fmt.Fprintf(a.out, "Overdue:    %d\n", stats.Overdue)
				fmt.Fprintf(a.out, "Due today:  %d\n", stats.DueToday)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")

	return cmd
}
