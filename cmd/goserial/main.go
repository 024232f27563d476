// Command goserial is a thin CLI over the serial package, exercising
// the Manager façade the way a human would from a terminal: list
// ports, open one with a baud rate, watch for line events, or push a
// file across with XMODEM.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	serial "github.com/daedaluz/goserial2"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "goserial",
		Short: "Inspect and drive serial ports from the command line",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.goserial.yaml)")
	cobra.OnInitialize(initConfig)

	root.AddCommand(newListCmd())
	root.AddCommand(newMonitorCmd())
	root.AddCommand(newSendFileCmd())
	root.AddCommand(newReceiveFileCmd())
	return root
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".goserial")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}
	viper.SetEnvPrefix("goserial")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-ports",
		Short: "List candidate serial port device paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := serial.NewManager()
			for _, name := range mgr.ListPorts() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newMonitorCmd() *cobra.Command {
	var baud int
	var durationSec int
	cmd := &cobra.Command{
		Use:   "monitor <port>",
		Short: "Open a port and print received bytes and line events for --duration seconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			mgr := serial.NewManager()
			handle, err := mgr.Open(name, true, true, true)
			if err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
			defer mgr.Close(handle)

			cfg := serial.DefaultConfig()
			cfg.Baud = serial.Baud(baud)
			if err := mgr.Configure(handle, cfg); err != nil {
				return fmt.Errorf("configure %s: %w", name, err)
			}

			dataToken, err := mgr.RegisterDataListener(handle, func(data []byte) {
				fmt.Printf("data: %q\n", data)
			})
			if err != nil {
				return fmt.Errorf("register data listener: %w", err)
			}
			defer mgr.UnregisterDataListener(dataToken)

			eventToken, err := mgr.RegisterEventListener(handle, serial.EventMaskAll, func(mask serial.EventMask) {
				fmt.Printf("event: %#x\n", uint32(mask))
			})
			if err != nil {
				return fmt.Errorf("register event listener: %w", err)
			}
			defer mgr.UnregisterEventListener(eventToken)

			logger, _ := zap.NewProduction()
			defer logger.Sync()
			logger.Info("monitoring", zap.String("port", name), zap.Int("baud", baud))

			time.Sleep(time.Duration(durationSec) * time.Second)
			return nil
		},
	}
	cmd.Flags().IntVar(&baud, "baud", 9600, "baud rate")
	cmd.Flags().IntVar(&durationSec, "duration", 10, "seconds to monitor before exiting")
	return cmd
}

func newSendFileCmd() *cobra.Command {
	var baud int
	cmd := &cobra.Command{
		Use:   "send-file <port> <path>",
		Short: "Send a file over an open port using XMODEM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			mgr := serial.NewManager()
			handle, err := mgr.Open(name, true, true, true)
			if err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
			defer mgr.Close(handle)

			cfg := serial.DefaultConfig()
			cfg.Baud = serial.Baud(baud)
			if err := mgr.Configure(handle, cfg); err != nil {
				return fmt.Errorf("configure %s: %w", name, err)
			}

			return mgr.SendFile(handle, path, serial.ProtocolXMODEM)
		},
	}
	cmd.Flags().IntVar(&baud, "baud", 9600, "baud rate")
	return cmd
}

func newReceiveFileCmd() *cobra.Command {
	var baud int
	cmd := &cobra.Command{
		Use:   "receive-file <port> <path>",
		Short: "Receive a file over an open port using XMODEM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			mgr := serial.NewManager()
			handle, err := mgr.Open(name, true, true, true)
			if err != nil {
				return fmt.Errorf("open %s: %w", name, err)
			}
			defer mgr.Close(handle)

			cfg := serial.DefaultConfig()
			cfg.Baud = serial.Baud(baud)
			if err := mgr.Configure(handle, cfg); err != nil {
				return fmt.Errorf("configure %s: %w", name, err)
			}

			return mgr.ReceiveFile(handle, path, serial.ProtocolXMODEM)
		},
	}
	cmd.Flags().IntVar(&baud, "baud", 9600, "baud rate")
	return cmd
}
