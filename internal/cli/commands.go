package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/todo-vault/internal/config"
	"github.com/amirbrooks/todo-vault/internal/model"
)

func (a *app) initCmd() *cobra.Command {
	var (
		project string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the store root, its config file and an empty snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := config.ResolveRoot(a.gf.Root)
			_, yamlErr := os.Stat(filepath.Join(root, config.YAMLFile))
			_, tomlErr := os.Stat(filepath.Join(root, config.TOMLFile))
			exists := yamlErr == nil || tomlErr == nil
			if exists && !force {
				return fmt.Errorf("%w: %s is already initialized (use --force to rewrite config)", errConflict, root)
			}
			cfg, err := config.Load(root)
			if err != nil {
				return internalErr(err)
			}
			if strings.TrimSpace(a.gf.Backend) != "" {
				cfg.Backend = a.gf.Backend
			}
			if err := cfg.Save(); err != nil {
				return internalErr(err)
			}
			if err := a.open(); err != nil {
				return err
			}
			if strings.TrimSpace(project) != "" {
				a.tr.CreateProject(project)
			}
			if err := a.saved(); err != nil {
				return err
			}
			a.say("Initialized todo store at: %s\n", root)
			return nil
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Create a first project with this name")
	cmd.Flags().BoolVar(&force, "force", false, "Rewrite an existing config file")
	return cmd
}

func (a *app) projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project and make it active",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			p := a.tr.CreateProject(strings.Join(args, " "))
			if err := a.saved(); err != nil {
				return err
			}
			if a.gf.Quiet {
				a.printf("%s\n", p.ID)
				return nil
			}
			a.printf("Created project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List projects; * marks the active one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			active := a.tr.ActiveProject()
			tw := tabwriter.NewWriter(a.stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tNAME\tTASKS")
			for _, p := range a.tr.Projects() {
				mark := ""
				if active != nil && p.ID == active.ID {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", mark, p.ID, p.Name, p.Count())
			}
			return tw.Flush()
		},
	}

	use := &cobra.Command{
		Use:   "use <id-or-name>",
		Short: "Switch the active project",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			p, err := a.tr.UseProject(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := a.saved(); err != nil {
				return err
			}
			a.say("Active project: %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	cmd.AddCommand(add, ls, use)
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var tags string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task to the active project",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			task, err := a.tr.AddTask(strings.Join(args, " "), tags)
			if err != nil {
				return err
			}
			if err := a.saved(); err != nil {
				return err
			}
			a.printTask(task)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Comma separated tags")
	return cmd
}

func (a *app) subCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sub <parent-id> <title>",
		Short: "Add a subtask under any task",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			task, err := a.tr.AddSubtask(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if err := a.saved(); err != nil {
				return err
			}
			a.printTask(task)
			return nil
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	var tags string
	cmd := &cobra.Command{
		Use:   "edit <id> <title>",
		Short: "Change the title and tags of a task",
		Long:  "Change the title of a task. Tags are replaced only when --tags is given; --tags \"\" clears them.",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			current, err := a.tr.Task(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tags") {
				tags = strings.Join(current.Tags, ", ")
			}
			task, err := a.tr.EditTask(args[0], strings.Join(args[1:], " "), tags)
			if err != nil {
				return err
			}
			if err := a.saved(); err != nil {
				return err
			}
			a.printTask(task)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "Comma separated tags")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <todo|in-progress|done>",
		Short: "Set the status of a task",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseStatus(args[1])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			task, err := a.tr.SetStatus(args[0], status)
			if err != nil {
				return err
			}
			if err := a.saved(); err != nil {
				return err
			}
			a.printTask(task)
			return nil
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task with all of its subtasks",
		Args:    minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			if err := a.tr.DeleteTask(args[0]); err != nil {
				return err
			}
			if err := a.saved(); err != nil {
				return err
			}
			a.say("Deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) lsCmd() *cobra.Command {
	var (
		all    bool
		asJSON bool
		ascii  bool
		format string
	)
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Show the active project's tasks that pass the filters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseRenderFormat(format)
			if err != nil {
				return err
			}
			switch {
			case asJSON:
				f = formatJSON
			case ascii && f == formatTree:
				f = formatASCII
			}
			if err := a.open(); err != nil {
				return err
			}
			p := a.tr.ActiveProject()
			if p == nil {
				a.say("No projects yet. Add one with: todo project add <name>\n")
				return nil
			}
			tasks := a.tr.FilteredTasks()
			if all {
				tasks = p.Tasks
			}
			return renderTasks(a.stdout, p, tasks, f)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Ignore the saved filters")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tasks as JSON")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "ASCII status markers")
	cmd.Flags().StringVar(&format, "format", "tree", "Output format: tree|ascii|plain|telegram|json")
	return cmd
}

func (a *app) tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag used in the active project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			for _, tag := range a.tr.Tags() {
				a.printf("%s\n", tag)
			}
			return nil
		},
	}
}

func (a *app) filterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Show or change the saved task filters",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			renderFilters(a.stdout, a.tr.Filters())
			return nil
		},
	}

	var (
		statuses string
		tags     string
		search   string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the filters; flags that are not given keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			f := a.tr.Filters()
			if cmd.Flags().Changed("status") {
				parsed := []model.Status{}
				for _, s := range model.ParseTags(statuses) {
					st, err := model.ParseStatus(s)
					if err != nil {
						return err
					}
					parsed = append(parsed, st)
				}
				f.Statuses = parsed
			}
			if cmd.Flags().Changed("tag") {
				f.Tags = model.ParseTags(tags)
			}
			if cmd.Flags().Changed("search") {
				f.Search = search
			}
			if err := a.tr.SetFilters(f); err != nil {
				return err
			}
			if err := a.saved(); err != nil {
				return err
			}
			if !a.gf.Quiet {
				renderFilters(a.stdout, a.tr.Filters())
			}
			return nil
		},
	}
	set.Flags().StringVar(&statuses, "status", "", "Comma separated statuses to show")
	set.Flags().StringVar(&tags, "tag", "", "Comma separated tags; a task needs any one of them")
	set.Flags().StringVar(&search, "search", "", "Case-insensitive title search")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Show every status, no tag filter, empty search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			a.tr.ResetFilters()
			if err := a.saved(); err != nil {
				return err
			}
			a.say("Filters reset\n")
			return nil
		},
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}

func (a *app) printTask(t model.Task) {
	if a.gf.Quiet {
		a.printf("%s\n", t.ID)
		return
	}
	a.printf("%s %s %s%s\n", t.ID, statusMark(t.Status, true), cleanTitle(t.Title), tagSuffix(t.Tags))
}
