package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/cap"
	"github.com/wmo-raf/capwire/shared/config"
	"github.com/wmo-raf/capwire/shared/geometries"
	"github.com/wmo-raf/capwire/shared/metrics"
	"github.com/wmo-raf/capwire/shared/multimedia"
	"github.com/wmo-raf/capwire/shared/queue"
	"github.com/wmo-raf/capwire/shared/sign"
	"github.com/wmo-raf/capwire/shared/store"
	"github.com/wmo-raf/capwire/shared/webhook"
)

func init() {
	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

func main() {
	cfg, err := config.Load(os.Getenv("CAPWIRE_CONFIG_PATH"))
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Fatal("failed to load config")
	}

	db, err := store.New(cfg.DBConn)
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		panic(fmt.Errorf("unable to connect to redis: %s", err))
	}
	rDB := redis.NewClient(opt)

	signer, err := sign.New(sign.Config{
		KeyPath:   cfg.Signing.KeyPath,
		CertPath:  cfg.Signing.CertPath,
		Algorithm: cfg.Signing.Algorithm,
	})
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Fatal("failed to load signing material")
	}

	docs := cap.NewDocuments(
		signer,
		cap.NewDocumentCache(rDB, cfg.CAP.CacheTTL),
		cfg.Signing.UnsignedFallback,
		cfg.CAP.WMOOID,
		cfg.CAP.StylesheetURL,
	)

	dispatcher := webhook.NewDispatcher(db, cfg.Webhook.Timeout)
	normalizer := geometries.NewNormalizer(db, cfg.Multimedia.CircleSegments)

	var uploader multimedia.Uploader
	if cfg.Multimedia.S3Bucket != "" {
		sess := session.Must(session.NewSession(&aws.Config{
			Region: aws.String(cfg.AWS.Region),
		}))
		uploader = multimedia.NewS3Uploader(sess, cfg.Multimedia.S3Bucket)
	}

	pipeline := multimedia.NewPipeline(
		db,
		normalizer,
		multimedia.NewRenderer(cfg.Multimedia.RendererURL),
		uploader,
		multimedia.Branding{
			OrgName:       cfg.Branding.OrgName,
			SenderContact: cfg.Branding.SenderContact,
			AlertsURL:     cfg.Branding.AlertsURL,
		},
	)

	metrics.Register()

	w := queue.NewWorker(queue.New(rDB), cfg.Worker.Concurrency, cfg.Webhook.MaxAttempts)

	w.Handle(queue.JobWebhookDispatch, func(ctx context.Context, job queue.Job) error {
		alert, err := db.GetAlert(ctx, job.AlertIdentifier)
		if err != nil {
			return err
		}
		if alert == nil {
			log.WithFields(log.Fields{"alertId": job.AlertIdentifier}).Warn("alert vanished before dispatch, dropping job")
			return nil
		}

		doc, err := docs.Deliverable(ctx, alert)
		if err != nil {
			return err
		}
		return dispatcher.Dispatch(ctx, alert, doc)
	})

	w.Handle(queue.JobMultimedia, func(ctx context.Context, job queue.Job) error {
		return pipeline.Generate(ctx, job.AlertIdentifier)
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	log.WithFields(log.Fields{"concurrency": cfg.Worker.Concurrency}).Info("worker consuming jobs")
	w.Run(ctx)
}
