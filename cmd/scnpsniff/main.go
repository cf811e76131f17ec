// Command scnpsniff is an SCNP protocol analyzer: it proxies a TCP
// connection between a client and a HANA-speaking server, relaying bytes
// unchanged while printing a text summary of every packet it frames.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"github.com/opensap/hdb-go/internal/protocol"
)

const (
	defaultAddr   = "localhost:50000"
	defaultDBAddr = "localhost:39013"
)

func main() {
	addr, dbAddr := cli()
	log.Printf("listening on %s (database address %s)", addr, dbAddr)

	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()
	for {
		conn, err := l.Accept()
		if err != nil {
			log.Fatal(err)
		}
		go handle(conn, dbAddr)
	}
}

func handle(client net.Conn, dbAddr string) {
	defer client.Close()

	server, err := net.Dial("tcp", dbAddr)
	if err != nil {
		log.Printf("database connection error: %s", err)
		return
	}
	defer server.Close()

	done := make(chan struct{}, 2)
	go relay("client->server", client, server, done)
	go relay("server->client", server, client, done)
	<-done
	<-done
}

// relay copies src to dst unaltered while logging a summary of every frame
// it observes, via an in-memory pipe duplicated from an io.TeeReader.
func relay(tag string, src io.Reader, dst io.Writer, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		for {
			info, err := protocol.DecodeFrame(pr)
			if err != nil {
				return
			}
			logFrame(tag, info)
		}
	}()

	tee := io.TeeReader(src, pw)
	if _, err := io.Copy(dst, tee); err != nil {
		log.Printf("%s: connection closed: %s", tag, err)
	}
}

func logFrame(tag string, info *protocol.FrameInfo) {
	fmt.Printf("%s session=%d seq=%d\n", tag, info.SessionID, info.PacketSeq)
	for _, seg := range info.Segments {
		fmt.Printf("  segment kind=%s functionCode=%s messageType=%s\n", seg.Kind, seg.FunctionCode, seg.MessageType)
		for _, p := range seg.Parts {
			fmt.Printf("    part kind=%s bufferLength=%d\n", p.Kind, p.BufferLength)
		}
	}
}

func cli() (addr, dbAddr string) {
	const usageText = `
%[1]s is an SCNP protocol analyzer. It lets you see what's happening on the
wire between a client and a HANA-speaking server.

Usage of %[1]s:
`
	args := flag.NewFlagSet("", flag.ExitOnError)
	args.Usage = func() {
		fmt.Fprintf(args.Output(), usageText, os.Args[0])
		args.PrintDefaults()
	}
	a := args.String("s", defaultAddr, "<host:port>: address to accept connections on")
	dba := args.String("db", defaultDBAddr, "<host:port>: database address to connect to")
	args.Parse(os.Args[1:])
	return *a, *dba
}
