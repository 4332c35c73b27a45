package main

import (
	"flag"
	"fmt"
	"os"
)

// Flags are the global blogctl options
type Flags struct {
	Images []string
	Name   string
	Quiet  bool
}

type stringList []string

func (s *stringList) String() string     { return fmt.Sprint(*s) }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// ParseFlags returns the options and the remaining positional arguments
func ParseFlags() (Flags, []string) {
	flags := Flags{}
	var images stringList

	flag.Var(&images, "image", "Image file for bulk generation (repeatable)")
	flag.Var(&images, "i", "Image file for bulk generation (shorthand)")
	flag.StringVar(&flags.Name, "name", "", "Display name for create-admin")
	flag.BoolVar(&flags.Quiet, "q", false, "Hide the progress bar")
	flag.Usage = usage

	flag.Parse()
	flags.Images = images
	return flags, flag.Args()
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: blogctl [flags] <command> [args]

Commands:
  publish                       publish scheduled articles that are due
  boost                         run one engagement boost pass
  migrate up|down|goto <N>      apply database migrations
  bulk <topics-file>            generate and schedule articles (needs -image)
  create-admin <email> <pass>   create an admin account

Flags:
`)
	flag.PrintDefaults()
}
