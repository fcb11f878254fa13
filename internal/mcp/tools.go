package mcp

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/vaultkeeper/internal/cli"
	"github.com/forest6511/vaultkeeper/pkg/security"
	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// ProfileListInput represents input for profile_list tool.
type ProfileListInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"glob pattern matched against profile names"`
}

// ProfileListOutput represents output for profile_list tool.
type ProfileListOutput struct {
	Profiles []ProfileInfo `json:"profiles"`
}

// ProfileInfo describes a profile without its password.
type ProfileInfo struct {
	Name        string `json:"name"`
	HasUsername bool   `json:"has_username"`
	HasLink     bool   `json:"has_link"`
}

// ProfileExistsInput represents input for profile_exists tool.
type ProfileExistsInput struct {
	Name string `json:"name" jsonschema:"profile name"`
}

// ProfileExistsOutput represents output for profile_exists tool.
type ProfileExistsOutput struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

// ProfileGetMaskedInput represents input for profile_get_masked tool.
type ProfileGetMaskedInput struct {
	Name string `json:"name" jsonschema:"profile name"`
}

// ProfileGetMaskedOutput represents output for profile_get_masked tool.
type ProfileGetMaskedOutput struct {
	Name           string  `json:"name"`
	Username       *string `json:"username,omitempty"`
	Link           *string `json:"link,omitempty"`
	MaskedPassword string  `json:"masked_password"`
	PasswordLength int     `json:"password_length"`
	Strength       string  `json:"strength"`
}

// SecurityReportInput represents input for security_report tool.
type SecurityReportInput struct {
	IncludeNames bool `json:"include_names,omitempty" jsonschema:"name the affected profiles in each issue"`
}

func (s *Server) handleProfileList(_ context.Context, _ *mcp.CallToolRequest, input ProfileListInput) (*mcp.CallToolResult, ProfileListOutput, error) {
	profiles, err := s.vault.ListProfiles()
	if err != nil {
		return nil, ProfileListOutput{}, fmt.Errorf("failed to list profiles: %w", err)
	}

	byName := make(map[string]*vault.Profile, len(profiles))
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
		names = append(names, p.Name)
	}

	names, err = cli.FilterNames(names, input.Filter)
	if err != nil {
		return nil, ProfileListOutput{}, err
	}

	output := ProfileListOutput{Profiles: make([]ProfileInfo, 0, len(names))}
	for _, name := range names {
		p := byName[name]
		output.Profiles = append(output.Profiles, ProfileInfo{
			Name:        p.Name,
			HasUsername: p.Username != nil,
			HasLink:     p.Link != nil,
		})
	}
	return nil, output, nil
}

func (s *Server) handleProfileExists(_ context.Context, _ *mcp.CallToolRequest, input ProfileExistsInput) (*mcp.CallToolResult, ProfileExistsOutput, error) {
	if input.Name == "" {
		return nil, ProfileExistsOutput{}, errors.New("name is required")
	}

	exists, err := s.vault.ProfileExists(input.Name)
	if err != nil {
		return nil, ProfileExistsOutput{}, fmt.Errorf("failed to look up profile: %w", err)
	}
	return nil, ProfileExistsOutput{Name: input.Name, Exists: exists}, nil
}

func (s *Server) handleProfileGetMasked(_ context.Context, _ *mcp.CallToolRequest, input ProfileGetMaskedInput) (*mcp.CallToolResult, ProfileGetMaskedOutput, error) {
	if input.Name == "" {
		return nil, ProfileGetMaskedOutput{}, errors.New("name is required")
	}

	p, err := s.vault.GetProfile(input.Name)
	if err != nil {
		return nil, ProfileGetMaskedOutput{}, fmt.Errorf("failed to get profile: %w", err)
	}

	return nil, ProfileGetMaskedOutput{
		Name:           p.Name,
		Username:       p.Username,
		Link:           p.Link,
		MaskedPassword: cli.MaskValue(p.Password),
		PasswordLength: utf8.RuneCountInString(p.Password),
		Strength:       security.Strength(p.Password).String(),
	}, nil
}

func (s *Server) handleSecurityReport(_ context.Context, _ *mcp.CallToolRequest, input SecurityReportInput) (*mcp.CallToolResult, security.Report, error) {
	profiles, err := s.vault.ListProfiles()
	if err != nil {
		return nil, security.Report{}, fmt.Errorf("failed to list profiles: %w", err)
	}

	calc, err := security.NewCalculator()
	if err != nil {
		return nil, security.Report{}, err
	}
	return nil, *calc.Analyze(profiles, input.IncludeNames), nil
}
