package cmd

import (
	"context"
	"fmt"
	"path"

	"github.com/sramlab/pufrecon/internal/config"
	"github.com/sramlab/pufrecon/internal/render"
	"github.com/sramlab/pufrecon/internal/sink"
)

// newSink builds the image sink selected by the output config.
func newSink(ctx context.Context, out config.OutputConfig) (render.Sink, error) {
	switch out.Sink {
	case "", "file":
		return sink.NewFileSink(out.Dir), nil
	case "s3":
		return sink.NewS3SinkFromEnv(ctx, out.Region, out.Bucket, out.Prefix)
	case "minio":
		access, err := config.GetConfigValue(config.EnvMinioAccessKey)
		if err != nil {
			return nil, err
		}
		secret, err := config.GetConfigValue(config.EnvMinioSecretKey)
		if err != nil {
			return nil, err
		}
		return sink.DialMinio(sink.MinioOptions{
			Endpoint:  out.Endpoint,
			AccessKey: access,
			SecretKey: secret,
			UseSSL:    out.UseSSL,
		}, out.Bucket, out.Prefix)
	}
	return nil, fmt.Errorf("unknown sink %q (want file, s3 or minio)", out.Sink)
}

// imageLocation describes where an image named name ends up.
func imageLocation(out config.OutputConfig, name string) string {
	file := name + ".png"
	switch out.Sink {
	case "s3":
		return "s3://" + path.Join(out.Bucket, out.Prefix, file)
	case "minio":
		return path.Join(out.Endpoint, out.Bucket, out.Prefix, file)
	}
	return sink.NewFileSink(out.Dir).Path(file)
}

// saveImage sends g to the configured sink.
func saveImage(ctx context.Context, name string, g *render.Grid) error {
	s, err := newSink(ctx, appCfg.Output)
	if err != nil {
		return err
	}
	err = s.Write(ctx, name, g)
	appLog.LogWrite(ctx, name, err)
	if err != nil {
		return err
	}
	printOK("", fmt.Sprintf("Image saved: %s (%dx%d)", imageLocation(appCfg.Output, name), g.Width, g.Height))
	return nil
}
