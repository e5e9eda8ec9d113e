package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/avatarctic/settings-store/internal/bootstrap"
	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/core/ports"
	"github.com/spf13/cobra"
)

// opener wires the settings stack; migrate asks for schema migrations first.
type opener func(migrate bool) (*bootstrap.App, error)

const commandTimeout = 30 * time.Second

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "settingsctl",
		Short:         "Read and manage application settings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		getCmd(open),
		setCmd(open),
		groupCmd(open),
		createCmd(open),
		createGroupCmd(open),
		clearCacheCmd(open),
		migrateCmd(open),
	)
	return root
}

// withSettings opens the stack, hands a fresh SettingsService to fn and closes everything afterwards.
func withSettings(open opener, fn func(ctx context.Context, svc ports.SettingsService) error) error {
	app, err := open(false)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx, app.Settings.New())
}

func getCmd(open opener) *cobra.Command {
	var (
		typeName string
		def      string
		comment  string
		lang     string
	)
	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Print a setting value, creating it with the default when missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := setting.ParseValueType(typeName)
			if err != nil {
				return err
			}
			opts := []ports.GetOption{ports.WithType(t), ports.WithComment(comment), ports.WithLang(lang)}
			if cmd.Flags().Changed("default") {
				opts = append(opts, ports.WithDefault(def))
			}
			return withSettings(open, func(ctx context.Context, svc ports.SettingsService) error {
				v, err := svc.Get(ctx, args[0], opts...)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&typeName, "type", string(setting.TypeString), "type used when the setting is created")
	cmd.Flags().StringVar(&def, "default", "", "value stored when the setting is created")
	cmd.Flags().StringVar(&comment, "comment", "", "comment stored when the setting is created")
	cmd.Flags().StringVar(&lang, "lang", "", "read the localized variant NAME_<lang>")
	return cmd
}

func setCmd(open opener) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Update the value of an existing setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(open, func(ctx context.Context, svc ports.SettingsService) error {
				if group != "" {
					return svc.UpdateGroupedValue(ctx, group, args[0], args[1])
				}
				return svc.UpdateValue(ctx, args[0], args[1])
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "category of the setting")
	return cmd
}

func groupCmd(open opener) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "group NAME",
		Short: "Print every setting of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(open, func(ctx context.Context, svc ports.SettingsService) error {
				values, err := svc.Group(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(values)
				}
				return printGroupTable(cmd.OutOrStdout(), values)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func printGroupTable(out io.Writer, values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%v\n", name, values[name])
	}
	return w.Flush()
}

func createCmd(open opener) *cobra.Command {
	var req setting.CreateSettingRequest
	var typeName, value string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a setting, or one per locale with --multi-language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			req.Type = setting.ValueType(typeName)
			if cmd.Flags().Changed("value") {
				req.Value = value
			}
			return withSettings(open, func(ctx context.Context, svc ports.SettingsService) error {
				created, err := svc.Create(ctx, &req)
				if err != nil {
					return err
				}
				for _, st := range created {
					fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", st.Name, st.ID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&typeName, "type", string(setting.TypeString), "value type")
	cmd.Flags().StringVar(&value, "value", "", "initial value")
	cmd.Flags().StringVar(&req.Comment, "comment", "", "comment")
	cmd.Flags().StringVar(&req.Category, "group", "", "category, created when missing")
	cmd.Flags().BoolVar(&req.MultiLanguage, "multi-language", false, "create NAME_<locale> for every configured locale")
	return cmd
}

func createGroupCmd(open opener) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "create-group NAME",
		Short: "Create a category or update its comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(open, func(ctx context.Context, svc ports.SettingsService) error {
				c, err := svc.CreateGroup(ctx, &setting.CreateCategoryRequest{Name: args[0], Comment: comment})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "category %s (%s)\n", c.Name, c.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "comment")
	return cmd
}

func clearCacheCmd(open opener) *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:   "clear-cache NAME",
		Short: "Drop the shared cache entry of a setting, or of a category with --group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(open, func(ctx context.Context, svc ports.SettingsService) error {
				var cleared bool
				if group {
					cleared = svc.ClearGroupCache(ctx, args[0])
				} else {
					cleared = svc.ClearCache(ctx, args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared: %t\n", cleared)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "NAME is a category")
	return cmd
}

func migrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := open(true)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return app.Close()
		},
	}
}
