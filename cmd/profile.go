package cmd

import (
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/zoltar/internal/config"
	"github.com/Rorical/zoltar/internal/dispatcher"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage oracle profiles",
	Long:  `Manage profiles for different oracle backends and configurations.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Fprintln(out, "Available Profiles:")
		for _, name := range cfg.Names() {
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Fprintf(out, "  %s%s\n", name, marker)
			fmt.Fprintf(out, "    Base URL: %s\n", cfg.Profiles[name].BaseURL)
			fmt.Fprintln(out)
		}
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profile, err := cfg.Profile(args[0])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Profile: %s\n", args[0])
		writeProfile(cmd.OutOrStdout(), profile)
	},
}

func writeProfile(out io.Writer, p config.Profile) {
	orDefault := func(v, def string) string {
		if v == "" {
			return def + " (default)"
		}
		return v
	}

	fmt.Fprintf(out, "Base URL: %s\n", orDefault(p.BaseURL, config.DefaultBaseURL))
	fmt.Fprintf(out, "Generate path: %s\n", orDefault(p.GeneratePath, dispatcher.DefaultGeneratePath))
	fmt.Fprintf(out, "Teacher path: %s\n", orDefault(p.TeacherPath, dispatcher.DefaultTeacherPath))
	fmt.Fprintf(out, "Topic: %s\n", orDefault(p.Topic, "none"))
	fmt.Fprintf(out, "Level: %s\n", orDefault(p.Level, "none"))
	if p.TimeoutSeconds > 0 {
		fmt.Fprintf(out, "Timeout: %ds\n", p.TimeoutSeconds)
	} else {
		fmt.Fprintf(out, "Timeout: %s (default)\n", config.DefaultTimeout)
	}

	hasKey := "Not set"
	if p.APIKey != "" {
		hasKey = "Set (hidden for security)"
	}
	fmt.Fprintf(out, "API Key: %s\n", hasKey)
	if p.APIKey != "" {
		fmt.Fprintf(out, "Model: %s\n", orDefault(p.Model, dispatcher.DefaultModel))
		fmt.Fprintf(out, "Persona: %s\n", orDefault(p.Persona, dispatcher.PersonaEngineered))
	}
}

// promptProfile asks for every profile field, offering current values as defaults
func promptProfile(current config.Profile) (config.Profile, error) {
	p := current
	var err error

	fields := []struct {
		label  string
		target *string
		def    string
		mask   rune
	}{
		{"Base URL", &p.BaseURL, orFallback(current.BaseURL, config.DefaultBaseURL), 0},
		{"Topic hint (optional)", &p.Topic, current.Topic, 0},
		{"Level hint (optional)", &p.Level, current.Level, 0},
		{"OpenAI API Key (optional)", &p.APIKey, current.APIKey, '*'},
	}
	for _, f := range fields {
		prompt := promptui.Prompt{Label: f.label, Default: f.def, Mask: f.mask}
		if *f.target, err = prompt.Run(); err != nil {
			return p, fmt.Errorf("prompt failed: %w", err)
		}
	}

	timeoutPrompt := promptui.Prompt{
		Label:   "Timeout in seconds",
		Default: strconv.Itoa(current.TimeoutSeconds),
		Validate: func(s string) error {
			_, err := strconv.Atoi(s)
			return err
		},
	}
	timeout, err := timeoutPrompt.Run()
	if err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}
	p.TimeoutSeconds, _ = strconv.Atoi(timeout)

	if p.APIKey == "" {
		return p, nil
	}

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: orFallback(current.Model, dispatcher.DefaultModel),
	}
	if p.Model, err = modelPrompt.Run(); err != nil {
		return p, fmt.Errorf("prompt failed: %w", err)
	}

	personaPrompt := promptui.Select{
		Label: "Persona",
		Items: []string{dispatcher.PersonaEngineered, dispatcher.PersonaBaseline},
	}
	if _, p.Persona, err = personaPrompt.Run(); err != nil {
		return p, fmt.Errorf("selection failed: %w", err)
	}
	return p, nil
}

func orFallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// selectProfile returns the named profile or asks the user to pick one
func selectProfile(cfg *config.Config, args []string, label string) string {
	if len(args) > 0 {
		return args[0]
	}

	names := cfg.Names()
	if len(names) == 0 {
		log.Fatalf("No profiles available")
	}
	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	return name
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Profile name",
			}
			profileName, err = prompt.Run()
			if err != nil {
				log.Fatalf("Prompt failed: %v", err)
			}
		}

		if _, err := cfg.Profile(profileName); err == nil {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.Profile{})
		if err != nil {
			log.Fatal(err)
		}
		if err := cfg.AddProfile(profileName, profile); err != nil {
			log.Fatal(err)
		}
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' added successfully!\n", profileName)
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profileName := selectProfile(cfg, args, "Select profile to edit")
		current, err := cfg.Profile(profileName)
		if err != nil {
			log.Fatal(err)
		}

		profile, err := promptProfile(current)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' updated successfully!\n", profileName)
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profileName := selectProfile(cfg, args, "Select profile to delete")
		if _, err := cfg.Profile(profileName); err != nil {
			log.Fatal(err)
		}

		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
			return
		}

		if err := cfg.DeleteProfile(profileName); err != nil {
			log.Fatal(err)
		}
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted successfully!\n", profileName)
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profileName := selectProfile(cfg, args, "Select profile to switch to")
		if err := cfg.Use(profileName); err != nil {
			log.Fatal(err)
		}
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile '%s'\n", profileName)
	},
}

func init() {
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
