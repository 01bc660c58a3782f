package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tturner/cipmsg/internal/app"
	"github.com/tturner/cipmsg/internal/cip/client"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	cipmsgErrors "github.com/tturner/cipmsg/internal/errors"
	"github.com/tturner/cipmsg/internal/ui"
)

type genericFlags struct {
	key         string
	catalogFile string
	service     string
	classID     string
	instanceID  string
	attributeID string
	dataHex     string
	format      string
	connected   bool
	routed      bool
	dryRun      bool
}

func newGenericCmd(g *globalFlags) *cobra.Command {
	flags := &genericFlags{}

	cmd := &cobra.Command{
		Use:   "generic",
		Short: "Send one CIP service request",
		Long: `Send one CIP service request to a class/instance/attribute, either
spelled out with flags or named by a catalog key. The reply data is shown
raw and, when a format is given, decoded field by field.`,
		Example: `  # Get_Attribute_Single (0x0E) for Identity Vendor ID
  cipmsg generic --target 10.0.0.50 --service 0x0E --class 0x01 --instance 1 --attribute 1 --format vendor:UINT

  # Same request from the built-in catalog
  cipmsg generic --target 10.0.0.50 --key identity.vendor_id

  # Routed through the backplane to slot 2
  cipmsg generic --target 10.0.0.50 --route 1,2 --routed --key identity.all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.key == "" && flags.service == "" {
				return missingFlagError(cmd, "--service or --key")
			}
			req, err := buildGenericRequest(flags)
			if err != nil {
				return err
			}
			if flags.dryRun {
				return printGenericRequest(cmd, g, req)
			}
			return withSession(cmd, g, req.Connected, func(ctx context.Context, s *app.Session) error {
				resp, err := s.Client.GenericMessage(ctx, req)
				if err != nil {
					return cipmsgErrors.WrapCIPError(err, fmt.Sprintf("service 0x%02X", uint8(req.Service)))
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderGenericReply(resp))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.key, "key", "", "Catalog key naming the request (see 'cipmsg catalog list')")
	cmd.Flags().StringVar(&flags.catalogFile, "catalog", "", "Extra catalog YAML merged over the built-in one")
	cmd.Flags().StringVar(&flags.service, "service", "", "CIP service code (hex or decimal)")
	cmd.Flags().StringVar(&flags.classID, "class", "", "CIP class ID (hex or decimal)")
	cmd.Flags().StringVar(&flags.instanceID, "instance", "", "CIP instance ID (hex or decimal)")
	cmd.Flags().StringVar(&flags.attributeID, "attribute", "", "CIP attribute ID (hex or decimal, omitted when empty)")
	cmd.Flags().StringVar(&flags.dataHex, "data", "", "Request data as hex")
	cmd.Flags().StringVar(&flags.format, "format", "", "Reply layout, e.g. vendor:UINT,serial:UDINT")
	cmd.Flags().BoolVar(&flags.connected, "connected", false, "Send over a Class-3 connection")
	cmd.Flags().BoolVar(&flags.routed, "routed", false, "Wrap in Unconnected Send along --route")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the encoded CIP request and exit")

	return cmd
}

// buildGenericRequest starts from the catalog entry, if any, and lets the
// explicit flags override it.
func buildGenericRequest(flags *genericFlags) (client.GenericRequest, error) {
	var req client.GenericRequest
	if flags.key != "" {
		cat, err := loadCatalog(flags.catalogFile)
		if err != nil {
			return req, err
		}
		entry, ok := cat.Lookup(flags.key)
		if !ok {
			return req, fmt.Errorf("catalog key %q not found", flags.key)
		}
		var instance uint64
		if flags.instanceID != "" {
			instance, err = parseUint(flags.instanceID, 32)
			if err != nil {
				return req, fmt.Errorf("parse instance: %w", err)
			}
		}
		req, err = entry.ToGenericRequest(uint32(instance))
		if err != nil {
			return req, err
		}
	} else {
		if flags.classID == "" {
			return req, fmt.Errorf("required flag --class not set")
		}
		req.Instance = 1
	}

	if flags.service != "" {
		v, err := parseUint(flags.service, 8)
		if err != nil {
			return req, fmt.Errorf("parse service: %w", err)
		}
		req.Service = protocol.CIPServiceCode(v)
	}
	if flags.classID != "" {
		v, err := parseUint(flags.classID, 16)
		if err != nil {
			return req, fmt.Errorf("parse class: %w", err)
		}
		req.Class = uint16(v)
	}
	if flags.instanceID != "" && flags.key == "" {
		v, err := parseUint(flags.instanceID, 32)
		if err != nil {
			return req, fmt.Errorf("parse instance: %w", err)
		}
		req.Instance = uint32(v)
	}
	if flags.attributeID != "" {
		v, err := parseUint(flags.attributeID, 16)
		if err != nil {
			return req, fmt.Errorf("parse attribute: %w", err)
		}
		req.Attribute = uint16(v)
		req.HasAttribute = true
	}
	if flags.dataHex != "" {
		data, err := parseHexPayload(flags.dataHex)
		if err != nil {
			return req, err
		}
		req.RequestData = data
	}
	if flags.format != "" {
		fields, err := protocol.ParseFormat(flags.format)
		if err != nil {
			return req, fmt.Errorf("parse format: %w", err)
		}
		req.Format = fields
	}
	if flags.connected {
		req.Connected = true
	}
	if flags.routed {
		req.UnconnectedSend = true
	}
	if req.Connected && req.UnconnectedSend {
		return req, fmt.Errorf("--connected and --routed are mutually exclusive")
	}
	return req, nil
}

// printGenericRequest shows the request as it would go on the wire; a
// routed request is wrapped in Unconnected Send along --route.
func printGenericRequest(cmd *cobra.Command, g *globalFlags, req client.GenericRequest) error {
	cipReq := protocol.CIPRequest{
		Service: req.Service,
		Path: protocol.CIPPath{
			Class:        req.Class,
			Instance:     req.Instance,
			Attribute:    req.Attribute,
			HasAttribute: req.HasAttribute,
		},
		Payload: req.RequestData,
	}
	mode := "unconnected"
	switch {
	case req.Connected:
		mode = "connected"
	case req.UnconnectedSend:
		mode = "routed"
		route, err := protocol.ParseRoutePath(g.route)
		if err != nil {
			return err
		}
		embedded, err := protocol.EncodeCIPRequest(cipReq)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "embedded request (%d bytes): % X\n", len(embedded), embedded)
		cipReq, err = protocol.BuildUnconnectedSend(cipReq, protocol.UnconnectedSendOptions{RoutePath: route})
		if err != nil {
			return fmt.Errorf("wrap request: %w", err)
		}
	}
	encoded, err := protocol.EncodeCIPRequest(cipReq)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "CIP request (%s, %d bytes): % X\n", mode, len(encoded), encoded)
	return nil
}

func parseUint(input string, bits int) (uint64, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(input), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value '%s'", input)
	}
	return value, nil
}
