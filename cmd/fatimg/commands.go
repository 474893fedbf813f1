package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dargueta/fatimg"
	fe "github.com/dargueta/fatimg/errors"
	"github.com/dargueta/fatimg/fat12"
	"github.com/dargueta/fatimg/layout"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

type commands struct {
	fs afero.Fs
}

func newApp(fs afero.Fs, stdout, stderr io.Writer) *cli.App {
	cmds := &commands{fs: fs}
	return &cli.App{
		Name:      "fatimg",
		Usage:     "Manage files in FAT12 floppy disk images",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "layout",
				Value: layout.DefaultSlug,
				Usage: "image layout to use; run the layouts command to see them all",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe an image",
				ArgsUsage: "IMAGE",
				Action:    cmds.format,
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List the files in an image",
				ArgsUsage: "IMAGE",
				Action:    cmds.list,
			},
			{
				Name:      "save",
				Usage:     "Copy host files into an image, replacing files of the same name",
				ArgsUsage: "IMAGE FILE...",
				Action:    cmds.save,
			},
			{
				Name:      "load",
				Usage:     "Write the contents of a file in an image to standard output",
				ArgsUsage: "IMAGE NAME",
				Action:    cmds.load,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a file from an image",
				ArgsUsage: "IMAGE NAME",
				Action:    cmds.delete,
			},
			{
				Name:      "write",
				Usage:     "Write a host file directly into a data cluster, bypassing the FAT and directory",
				ArgsUsage: "IMAGE CLUSTER FILE",
				Action:    cmds.write,
			},
			{
				Name:      "check",
				Usage:     "Verify that the FAT and the directory agree",
				ArgsUsage: "IMAGE",
				Action:    cmds.check,
			},
			{
				Name:   "layouts",
				Usage:  "List the predefined image layouts",
				Action: cmds.layouts,
			},
		},
	}
}

// exitError converts an error into one carrying the process exit status. Errors
// from the engine exit with their errno.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var driverErr fatimg.DriverError
	if errors.As(err, &driverErr) {
		return cli.Exit(err.Error(), driverErr.Errno().ExitStatus())
	}
	return cli.Exit(err.Error(), 1)
}

func requireArgs(c *cli.Context, min int) error {
	if c.NArg() < min {
		return cli.Exit(
			fmt.Sprintf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage),
			fe.EINVAL.ExitStatus())
	}
	return nil
}

func selectedLayout(c *cli.Context) (layout.Layout, error) {
	return layout.Predefined(c.String("layout"))
}

// withVolume opens the image at `path`, passes it to `action`, and closes it.
func (cmds *commands) withVolume(
	c *cli.Context,
	path string,
	action func(volume fat12.ReadWriteVolume) error,
) error {
	l, err := selectedLayout(c)
	if err != nil {
		return exitError(err)
	}

	file, err := cmds.fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return exitError(fatimg.ErrIOFailed.Wrap(err))
	}
	defer file.Close()

	volume, err := fat12.Open(file, l)
	if err != nil {
		return exitError(err)
	}
	return exitError(action(volume))
}

func (cmds *commands) format(c *cli.Context) error {
	err := requireArgs(c, 1)
	if err != nil {
		return err
	}
	l, err := selectedLayout(c)
	if err != nil {
		return exitError(err)
	}

	file, err := cmds.fs.OpenFile(c.Args().First(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return exitError(fatimg.ErrIOFailed.Wrap(err))
	}
	defer file.Close()

	return exitError(fat12.Format(file, l))
}

func (cmds *commands) list(c *cli.Context) error {
	err := requireArgs(c, 1)
	if err != nil {
		return err
	}

	return cmds.withVolume(c, c.Args().First(), func(volume fat12.ReadWriteVolume) error {
		out := c.App.Writer
		entries := volume.List()
		total := uint64(0)
		for _, entry := range entries {
			modified := entry.ModTime()
			fmt.Fprintf(
				out,
				"%-8s %-3s %10d  %s  %s\n",
				entry.Name.Base(),
				entry.Name.Extension(),
				entry.Size,
				modified.Format("2006-01-02"),
				modified.Format("15:04:05"))
			total += uint64(entry.Size)
		}

		l := volume.Layout()
		fmt.Fprintf(
			out,
			"%d file(s), %d bytes used, %d bytes free\n",
			len(entries),
			total,
			uint64(volume.FreeClusters())*uint64(l.BytesPerCluster))
		return nil
	})
}

func (cmds *commands) save(c *cli.Context) error {
	err := requireArgs(c, 2)
	if err != nil {
		return err
	}

	return cmds.withVolume(c, c.Args().First(), func(volume fat12.ReadWriteVolume) error {
		for _, hostPath := range c.Args().Tail() {
			name, err := fat12.ShortNameFromPath(hostPath)
			if err != nil {
				return err
			}
			data, err := afero.ReadFile(cmds.fs, hostPath)
			if err != nil {
				return fatimg.ErrIOFailed.Wrap(err)
			}

			// Saving never overwrites, so any old copy goes first.
			err = volume.Delete(name)
			if err != nil && !errors.Is(err, fatimg.ErrNotFound) {
				return err
			}
			err = volume.Save(name, data)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (cmds *commands) load(c *cli.Context) error {
	err := requireArgs(c, 2)
	if err != nil {
		return err
	}

	return cmds.withVolume(c, c.Args().First(), func(volume fat12.ReadWriteVolume) error {
		data, err := volume.Load(fat12.ParseShortName(c.Args().Get(1)))
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(data)
		if err != nil {
			return fatimg.ErrIOFailed.Wrap(err)
		}
		return nil
	})
}

func (cmds *commands) delete(c *cli.Context) error {
	err := requireArgs(c, 2)
	if err != nil {
		return err
	}

	return cmds.withVolume(c, c.Args().First(), func(volume fat12.ReadWriteVolume) error {
		return volume.Delete(fat12.ParseShortName(c.Args().Get(1)))
	})
}

func (cmds *commands) write(c *cli.Context) error {
	err := requireArgs(c, 3)
	if err != nil {
		return err
	}

	cluster, err := strconv.ParseUint(c.Args().Get(1), 0, 12)
	if err != nil {
		return exitError(fatimg.ErrInvalidArgument.Wrap(err))
	}
	data, err := afero.ReadFile(cmds.fs, c.Args().Get(2))
	if err != nil {
		return exitError(fatimg.ErrIOFailed.Wrap(err))
	}

	return cmds.withVolume(c, c.Args().First(), func(volume fat12.ReadWriteVolume) error {
		return volume.WriteCluster(fat12.ClusterID(cluster), data)
	})
}

func (cmds *commands) check(c *cli.Context) error {
	err := requireArgs(c, 1)
	if err != nil {
		return err
	}

	return cmds.withVolume(c, c.Args().First(), func(volume fat12.ReadWriteVolume) error {
		err := volume.Check()
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "no problems found")
		return nil
	})
}

func (cmds *commands) layouts(c *cli.Context) error {
	for _, l := range layout.All() {
		marker := " "
		if l.Slug == layout.DefaultSlug {
			marker = "*"
		}
		fmt.Fprintf(
			c.App.Writer,
			"%s %-7s %-28s %8d bytes, %4d clusters of %4d bytes, %3d directory slots\n",
			marker,
			l.Slug,
			l.Name,
			l.ImageSize,
			l.TotalClusters(),
			l.BytesPerCluster,
			l.DirectorySlots)
	}
	return nil
}
