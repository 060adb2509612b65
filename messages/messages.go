// Package messages holds the chat texts the bot posts. Every event has a
// built-in default; a messages file (JSON or YAML, grouped by section like
// {"verify": {"instructions": "..."}}) may override any subset of them.
package messages

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// Event identifies one notification.
type Event int

const (
	NoUsername Event = iota
	Instructions
	AlreadyInProgress
	StartFailed
	UserNotFound
	BotNoPermission
	RoleHierarchy
	RoleAssignError
	InternalError
	Success
	SuccessWithNickname
	Expired
	Cancelled
	NothingToCancel
	Restarting
	RestartInstructions
	NothingToRestart
	BotOnline
	BotID

	numEvents
)

type entry struct {
	section, key string
	text         string
}

// defaults must list every Event; the array type below pins its length.
var defaults = [...]entry{
	NoUsername:          {"verify", "no_username", "{mention} You need to provide your Habbo username. Example: `{prefix}{command} YourHabboUser`"},
	Instructions:        {"verify", "instructions", "{mention} Starting verification for Habbo user **{habbo_user}**\n\n**Instructions:**\n1. Access your Habbo account\n2. Change your motto to: `{code}`\n3. Wait for automatic verification\n\nVerification will expire in {expiration_minutes} minutes. Use `{prefix}{cancel_command}` to cancel the process."},
	AlreadyInProgress:   {"verify", "already_in_progress", "{mention} You already have a verification in progress. Use `{prefix}{cancel_command}` to cancel."},
	StartFailed:         {"verify", "error", "{mention} Could not start verification: {error}"},
	UserNotFound:        {"verification_process", "user_not_found", "{mention} Could not find user **{habbo_user}** on Habbo. Please check if the name is correct or if the profile is open for public viewing."},
	BotNoPermission:     {"verification_process", "bot_no_permission", "{mention} Error: Bot doesn't have permission to manage roles. Please ask an administrator to give the 'Manage Roles' permission to the bot."},
	RoleHierarchy:       {"verification_process", "role_hierarchy_error", "{mention} Error: The '{role_name}' role is above the bot's highest role. Please ask an administrator to move the bot's role above the '{role_name}' role."},
	RoleAssignError:     {"verification_process", "role_assign_error", "{mention} Error: Could not assign role. Please check if the bot has the necessary permissions and if the bot's role is above the '{role_name}' role."},
	InternalError:       {"verification_process", "error", "{mention} Error assigning role: {error}"},
	Success:             {"verification_process", "success", "{mention} Verification completed successfully!"},
	SuccessWithNickname: {"verification_process", "success_with_nickname", "{mention} Verification completed successfully! Your nickname has been changed to **{habbo_user}**."},
	Expired:             {"verification_process", "expired", "{mention} Verification time expired. Use `{prefix}{command} {habbo_user}` to try again."},
	Cancelled:           {"cancel", "success", "{mention} Your verification has been cancelled."},
	NothingToCancel:     {"cancel", "no_verification", "{mention} You don't have any verification in progress."},
	Restarting:          {"restart", "in_progress", "{mention} Restarting verification for user **{habbo_user}**..."},
	RestartInstructions: {"restart", "instructions", "{mention} Restarting verification for Habbo user **{habbo_user}**\n\n**Instructions:**\n1. Access your Habbo account\n2. Change your motto to: `{code}`\n3. Wait for automatic verification (we check every {interval} seconds)\n\nVerification will expire in {expiration_minutes} minutes. Use `{prefix}{cancel_command}` to cancel the process."},
	NothingToRestart:    {"restart", "no_verification", "{mention} You don't have any verification in progress to restart."},
	BotOnline:           {"bot", "online", "{bot_name} is online!"},
	BotID:               {"bot", "id", "ID: {bot_id}"},
}

var _ [numEvents]entry = defaults

// Key returns the "section.key" path of e in a messages file.
func (e Event) Key() string {
	if e < 0 || e >= numEvents {
		return "event(" + strconv.Itoa(int(e)) + ")"
	}
	return defaults[e].section + "." + defaults[e].key
}

func (e Event) String() string { return e.Key() }

// Vars are the values substituted into templates.
type Vars struct {
	Mention           string
	Profile           string
	Code              string
	ExpirationMinutes int
	IntervalSeconds   int
	Prefix            string
	Command           string
	// CancelCommand defaults to "cancel" when empty.
	CancelCommand     string
	RoleName          string
	Error             string
	BotName           string
	BotID             string
}

func (v Vars) replacer() *strings.Replacer {
	cancel := v.CancelCommand
	if cancel == "" {
		cancel = "cancel"
	}
	return strings.NewReplacer(
		"{mention}", v.Mention,
		"{habbo_user}", v.Profile,
		"{profile}", v.Profile,
		"{code}", v.Code,
		"{expiration_minutes}", strconv.Itoa(v.ExpirationMinutes),
		"{interval}", strconv.Itoa(v.IntervalSeconds),
		"{prefix}", v.Prefix,
		"{command}", v.Command,
		"{cancel_command}", cancel,
		"{role_name}", v.RoleName,
		"{error}", v.Error,
		"{bot_name}", v.BotName,
		"{bot_id}", v.BotID,
	)
}

// Catalog resolves events to templates.
type Catalog struct {
	templates [numEvents]string
}

// Defaults returns a catalog holding only the built-in texts.
func Defaults() *Catalog {
	c := &Catalog{}
	for i, d := range defaults {
		c.templates[i] = d.text
	}
	return c
}

// Load reads overrides from path. A missing file yields the defaults; keys
// absent from the file keep their default text.
func Load(path string) (*Catalog, error) {
	c := Defaults()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read messages file: %w", err)
	}
	var sections map[string]map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &sections)
	default:
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &sections)
	}
	if err != nil {
		return nil, fmt.Errorf("parse messages file %s: %w", path, err)
	}
	for i, d := range defaults {
		if text, ok := sections[d.section][d.key]; ok && text != "" {
			c.templates[i] = text
		}
	}
	return c, nil
}

// Render formats the template of e with v.
func (c *Catalog) Render(e Event, v Vars) string {
	if e < 0 || e >= numEvents {
		return ""
	}
	return v.replacer().Replace(c.templates[e])
}
