package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sm5714/cmd/sm5714/console"
	"github.com/mklimuk/sm5714/register"
)

var regCmd = cli.Command{
	Name:  "reg",
	Usage: "raw register access",
	Subcommands: cli.Commands{
		&regReadCmd,
		&regWriteCmd,
		&regUpdateCmd,
	},
}

// withRegisters parses "<bus> <addr> [values...]" and opens the register map.
func withRegisters(c *cli.Context, values int, fn func(m *register.Map, addr byte, args []uint16) error) error {
	if c.NArg() != 2+values {
		return console.Exit(1, "expected %d arguments, got %d", 2+values, c.NArg())
	}
	addr, err := parseUint(c.Args().Get(1), 8)
	if err != nil {
		return console.Fail("invalid register address", err)
	}
	args := make([]uint16, values)
	for i := range args {
		v, err := parseUint(c.Args().Get(2+i), 16)
		if err != nil {
			return console.Fail("invalid value", err)
		}
		args[i] = uint16(v)
	}
	b, err := openBoard(c)
	if err != nil {
		return console.Fail("adapter initialization error", err)
	}
	defer b.close(c.Context)
	conn, err := b.conn(c.Args().First())
	if err != nil {
		return console.Fail("bus error", err)
	}
	defer func() { _ = conn.Close(c.Context) }()
	return fn(register.New(conn), byte(addr), args)
}

var regReadCmd = cli.Command{
	Name:      "read",
	Usage:     "read a 16-bit register",
	ArgsUsage: "<pmic|fuelgauge> <addr>",
	Action: func(c *cli.Context) error {
		return withRegisters(c, 0, func(m *register.Map, addr byte, _ []uint16) error {
			v, err := m.Read(c.Context, addr)
			if err != nil {
				return console.Fail("register read error", err)
			}
			console.Printf("%#02x: %#04x\n", addr, v)
			return nil
		})
	},
}

var regWriteCmd = cli.Command{
	Name:      "write",
	Usage:     "write a 16-bit register",
	ArgsUsage: "<pmic|fuelgauge> <addr> <value>",
	Action: func(c *cli.Context) error {
		return withRegisters(c, 1, func(m *register.Map, addr byte, args []uint16) error {
			if err := m.Write(c.Context, addr, args[0]); err != nil {
				return console.Fail("register write error", err)
			}
			console.Infof("%#02x <- %#04x", addr, args[0])
			return nil
		})
	},
}

var regUpdateCmd = cli.Command{
	Name:      "update",
	Usage:     "read-modify-write the masked bits of a register",
	ArgsUsage: "<pmic|fuelgauge> <addr> <mask> <value>",
	Action: func(c *cli.Context) error {
		return withRegisters(c, 2, func(m *register.Map, addr byte, args []uint16) error {
			if err := m.Update(c.Context, addr, args[0], args[1]); err != nil {
				return console.Fail("register update error", err)
			}
			v, err := m.Read(c.Context, addr)
			if err != nil {
				return console.Fail("register read error", err)
			}
			console.Printf("%#02x: %#04x\n", addr, v)
			return nil
		})
	},
}
