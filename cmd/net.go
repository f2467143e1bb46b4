package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dosctl/dosctl/discovery"
	"github.com/dosctl/dosctl/dosbox"
	"github.com/dosctl/dosctl/ipx"
	"github.com/dosctl/dosctl/upnp"
)

// publicIPTimeout bounds the HTTP lookup against the IP echo services.
const publicIPTimeout = 10 * time.Second

var (
	hostPort      int
	hostConfigure bool
	hostInternet  bool
	hostPublicIP  string
	hostNoUpnp    bool

	joinPort      int
	joinConfigure bool

	netCmd = &cobra.Command{
		Use:   "net",
		Short: "multiplayer networking commands (IPX over LAN or internet)",
	}

	netHostCmd = &cobra.Command{
		Use:   "host <id> [command]...",
		Short: "hosts a multiplayer game as an IPX server",
		Long: `Hosts a multiplayer game as an IPX server.

Starts DOSBox with an IPX server so other players can connect.

For LAN play, share your IP address with them:

  dosctl net join <id> YOUR_IP

For internet play, use the --internet flag to get a discovery code:

  dosctl net host <id> --internet

If you have already configured port forwarding on your router, you can
skip UPnP and/or specify your public IP directly:

  dosctl net host <id> --internet --no-upnp --public-ip 203.0.113.5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCommand(cmd); err != nil {
				return err
			}

			if (hostPublicIP != "" || hostNoUpnp) && !hostInternet {
				return errors.New("--public-ip and --no-upnp require the --internet flag")
			}

			t, err := newTool()
			if err != nil {
				return err
			}
			launcher, err := newLauncher(cmd, t)
			if err != nil {
				return err
			}

			id := args[0]
			_, installPath, err := installGame(cmd, t, id)
			if err != nil {
				return err
			}
			command, err := t.resolveRunCommand(cmd, id, installPath, args[1:], hostConfigure)
			if err != nil {
				return err
			}
			if err := t.saveAndValidateCommand(id, installPath, command); err != nil {
				return err
			}

			if hostInternet {
				if err := setupInternetHosting(cmd, hostPort, id, hostPublicIP, hostNoUpnp); err != nil {
					return err
				}
			} else {
				printLANHostingInfo(cmd, hostPort, id)
			}

			cmd.Printf("Starting '%s' with DOSBox (IPX networking)...\n", strings.ToUpper(command))
			return launcher.Launch(installPath, command, dosbox.Options{IPX: ipx.ServerConfig{Port: hostPort}})
		},
	}

	netJoinCmd = &cobra.Command{
		Use:   "join <id> <host> [command]...",
		Short: "joins a multiplayer game as an IPX client",
		Long: `Joins a multiplayer game as an IPX client.

Connects to a DOSBox IPX server hosted by another player. The host can be
an IP address or a discovery code:

  dosctl net join <id> 192.168.1.42   # LAN (raw IP)

  dosctl net join <id> DOOM-3KF8A     # Internet (discovery code)`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCommand(cmd); err != nil {
				return err
			}

			hostArg := args[1]
			resolvedIP, resolvedPort, err := discovery.ResolveHost(hostArg, joinPort)
			if err != nil {
				return err
			}

			// A custom port embedded in a discovery code wins over the
			// flag; codes carrying the default port defer to it.
			port := joinPort
			isCode := !strings.Contains(hostArg, ".")
			if isCode && resolvedPort != ipx.DefaultPort {
				port = resolvedPort
			}

			t, err := newTool()
			if err != nil {
				return err
			}
			launcher, err := newLauncher(cmd, t)
			if err != nil {
				return err
			}

			id := args[0]
			_, installPath, err := installGame(cmd, t, id)
			if err != nil {
				return err
			}
			command, err := t.resolveRunCommand(cmd, id, installPath, args[2:], joinConfigure)
			if err != nil {
				return err
			}
			if err := t.saveAndValidateCommand(id, installPath, command); err != nil {
				return err
			}

			if isCode {
				cmd.Printf("\nResolved discovery code: %s:%d\n", resolvedIP, port)
			}
			cmd.Printf("Connecting to IPX server at %s:%d...\n\n", resolvedIP, port)

			cmd.Printf("Starting '%s' with DOSBox (IPX networking)...\n", strings.ToUpper(command))
			return launcher.Launch(installPath, command, dosbox.Options{IPX: ipx.ClientConfig{Host: resolvedIP, Port: port}})
		},
	}
)

// printLANHostingInfo shows the join instructions for players on the same
// network.
func printLANHostingInfo(cmd *cobra.Command, port int, gameID string) {
	localIP := ipx.LocalIP()

	cmd.Printf("\nHosting IPX server on port %d.\n", port)
	if localIP == "" {
		cmd.Println("Could not detect your local IP. Share your IP address with the other player.")
		cmd.Println()
		return
	}

	cmd.Printf("Your local IP appears to be: %s\n", localIP)
	cmd.Printf("\nOther players on your network can join with:\n  dosctl net join %s %s\n", gameID, localIP)
	if port != ipx.DefaultPort {
		cmd.Printf("  dosctl net join %s %s --port %d\n", gameID, localIP, port)
	}
	cmd.Println()
}

// setupInternetHosting makes the IPX server reachable from the internet:
// UPnP port mapping on the gateway, public IP detection and the discovery
// code for the other players. Mapping failures degrade to guidance for
// manual router configuration; they never abort hosting.
func setupInternetHosting(cmd *cobra.Command, port int, gameID, publicIP string, noUpnp bool) error {
	localIP := ipx.LocalIP()

	var mapper *upnp.Mapper
	if noUpnp {
		cmd.Println("Setting up internet play (UPnP skipped)...")
	} else {
		cmd.Println("Setting up internet play...")
		mapper = attemptPortMapping(cmd, port, localIP)
	}

	// Public IP precedence: the flag, then the gateway's WAN address,
	// then the IP echo services.
	explicit := publicIP != ""
	if explicit {
		cmd.Printf("Using provided public IP: %s\n", publicIP)
	} else {
		if mapper != nil {
			publicIP = mapper.GetExternalIP()
		}
		if publicIP == "" {
			cmd.Println("Detecting public IP address...")
			publicIP = ipx.PublicIP(publicIPTimeout)
		}
	}

	if publicIP != "" {
		code, err := discovery.Encode(publicIP, port)
		if err != nil {
			if explicit {
				return fmt.Errorf("invalid public IP %q: %w", publicIP, err)
			}
			// a detected address we cannot encode is as good as none
			log.Warnf("detected public IP %q is unusable: %v", publicIP, err)
			publicIP = ""
		} else {
			cmd.Printf("\nHosting IPX server on port %d.\n", port)
			cmd.Printf("Your discovery code: %s\n", code)
			cmd.Printf("\nShare this code with other players. They can join with:\n  dosctl net join %s %s\n", gameID, code)
		}
	}

	if publicIP == "" {
		cmd.PrintErrln("\nCould not detect your public IP address.")
		cmd.Printf("Hosting IPX server on port %d.\n", port)
		if localIP != "" {
			cmd.Printf("Your local IP appears to be: %s\n", localIP)
		}
		cmd.Println("Share your public IP address with the other player so they can join.")
	}

	cmd.Println()
	return nil
}

// attemptPortMapping adds a UDP forwarding entry for port on the gateway,
// narrating the outcome. Returns the mapper when the mapping is in place,
// nil when the user has to configure the router by hand.
func attemptPortMapping(cmd *cobra.Command, port int, localIP string) *upnp.Mapper {
	mapper := upnp.NewMapper()
	if !mapper.DiscoverGateway(0) {
		cmd.PrintErrf("UPnP: No gateway found. You may need to manually forward UDP port %d to %s on your router.\n",
			port, orYourMachine(localIP))
		return nil
	}

	added := false
	if localIP != "" {
		description := fmt.Sprintf("dosctl-%s", uuid.NewString()[:8])
		added, _ = mapper.AddPortMapping(port, localIP, upnp.WithDescription(description))
	}

	if added {
		mapper.RegisterCleanup()
		if mapper.VerifyPortMapping(port, upnp.ProtocolUDP) {
			cmd.Printf("UPnP: Port mapping added and verified (UDP port %d).\n", port)
		} else {
			cmd.Printf("UPnP: Port mapping added but could not verify (UDP port %d). It may still work.\n", port)
		}
		return mapper
	}

	// The add was refused. A WAN address inside CGNAT or private ranges
	// means forwarding cannot help at all.
	wanIP := mapper.GetExternalIP()
	if wanIP == "" || ipx.IsCGNAT(wanIP) {
		cmd.PrintErrln("UPnP: Port mapping failed. Your router appears to be behind CGNAT (common with Starlink and some ISPs), so port forwarding won't work.\n" +
			"The easiest option is to ask the other player to host instead. Alternatively, get a public IP add-on from your ISP or use a VPN like Tailscale.")
	} else {
		detail := ""
		if lastErr := mapper.LastError(); lastErr != "" {
			detail = fmt.Sprintf(" (%s)", lastErr)
		}
		cmd.PrintErrf("UPnP: Could not open port%s. You may need to manually forward UDP port %d to %s on your router.\n",
			detail, port, orYourMachine(localIP))
	}
	return nil
}

func orYourMachine(localIP string) string {
	if localIP == "" {
		return "your machine"
	}
	return localIP
}
