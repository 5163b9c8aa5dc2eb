package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Zereker/chatroom"
)

func newClientCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Connect to a chat server from the terminal",
		Long: "Connects to a chat server, prints every frame the room " +
			"broadcasts, and sends each line typed on stdin. " +
			"Type quit or exit to leave.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runClient(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9000", "server address")
	return cmd
}

func runClient(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer conn.Close()

	fmt.Println("connected to", addr)

	go receive(conn)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			break
		}

		frame, err := chatroom.NewFrame([]byte(line))
		if err != nil {
			fmt.Printf("message too long, limit is %d bytes\n", chatroom.MaxBodySize)
			continue
		}

		if _, err := conn.Write(frame.Encode()); err != nil {
			return errors.Wrap(err, "send")
		}
	}

	return scanner.Err()
}

// receive prints every frame the server sends until the connection ends.
func receive(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		frame, err := chatroom.ReadFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println("server closed the connection")
			} else {
				fmt.Println("receive error:", err)
			}
			return
		}

		fmt.Printf("> %s\n", frame.Body())
	}
}
