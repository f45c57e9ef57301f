package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/announce"
	"github.com/wmo-raf/capwire/shared/cap"
	"github.com/wmo-raf/capwire/shared/config"
	"github.com/wmo-raf/capwire/shared/geometries"
	"github.com/wmo-raf/capwire/shared/lifecycle"
	"github.com/wmo-raf/capwire/shared/metrics"
	"github.com/wmo-raf/capwire/shared/queue"
	"github.com/wmo-raf/capwire/shared/sign"
	"github.com/wmo-raf/capwire/shared/store"
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

	var announcer lifecycle.Announcer
	if cfg.AWS.SNSTopicArn != "" {
		sess := session.Must(session.NewSession(&aws.Config{
			Region: aws.String(cfg.AWS.Region),
		}))
		announcer = announce.NewSNS(sess, cfg.AWS.SNSTopicArn, cfg.Branding.AlertsURL)
	}

	jobs := queue.New(rDB)
	svc := lifecycle.NewService(db, jobs, announcer)
	normalizer := geometries.NewNormalizer(db, cfg.Multimedia.CircleSegments)

	metrics.Register()

	h := &apiHandler{
		store:      db,
		lifecycle:  svc,
		documents:  docs,
		normalizer: normalizer,
		cfg:        cfg,
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newRouter(h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{"addr": cfg.HTTPAddr}).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(log.Fields{"err": err}).Fatal("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithFields(log.Fields{"err": err}).Error("http shutdown failed")
	}
}
