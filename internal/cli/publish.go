package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/cobra"

	"github.com/apresai/polycast/internal/pipeline"
	"github.com/apresai/polycast/internal/progress"
	"github.com/apresai/polycast/internal/service"
	"github.com/apresai/polycast/internal/storage"
	"github.com/apresai/polycast/internal/store"
	"github.com/apresai/polycast/internal/voice"
)

var (
	flagPublishTitle   string
	flagPublishSummary string
	flagPublishOwner   string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Render a script and publish every language to S3",
	Long:  "Render the script like 'generate', upload each language's MP3 to S3_BUCKET, and record the podcast in DYNAMODB_TABLE. Local files are removed after upload.",
	RunE:  runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	addRenderFlags(publishCmd)
	publishCmd.Flags().StringVarP(&flagScript, "script", "s", "", "Script file: JSON from 'polycast write' or plain 'Name: line' text")
	publishCmd.Flags().StringVarP(&flagNames, "names", "n", "", "Comma-separated character names (default: names stored in the script)")
	publishCmd.Flags().StringArrayVar(&flagVoices, "voices", nil, "Voices for one language as language=v1,v2,... (repeatable)")
	publishCmd.Flags().StringVar(&flagPublishTitle, "title", "", "Episode title (default: script title, then file name)")
	publishCmd.Flags().StringVar(&flagPublishSummary, "summary", "", "Episode summary (default: script description)")
	defaultOwner := "Apres AI"
	if u, err := user.Current(); err == nil && u.Name != "" {
		defaultOwner = u.Name
	}
	publishCmd.Flags().StringVar(&flagPublishOwner, "owner", defaultOwner, "Episode owner")
	publishCmd.MarkFlagRequired("script")
	publishCmd.MarkFlagRequired("voices")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer startTracing(ctx, cfg, logger)()
	if cfg.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required to publish")
	}

	s, err := loadScriptFile(flagScript, flagNames)
	if err != nil {
		return err
	}
	voices, err := voice.ParseVoiceSpecs(flagVoices)
	if err != nil {
		return err
	}

	awsCfg, err := cfg.AWSConfig(ctx)
	if err != nil {
		return err
	}
	cfg.LoadSecrets(ctx, secretsmanager.NewFromConfig(awsCfg), logger)
	if err := checkTranslation(cfg, s.Names, voices); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkFFmpeg(cfg.FFmpegPath); err != nil {
		return err
	}

	p, closeTTS, err := pipeline.FromConfig(ctx, cfg, &awsCfg, nil, logger)
	if err != nil {
		return err
	}
	defer closeTTS()

	podcasts := store.NewStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName)
	audio := storage.NewStorage(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.CDNBaseURL)
	publisher := service.NewPublisher(p, audio, podcasts, logger)

	ep := &service.Episode{
		Owner:       flagPublishOwner,
		Title:       episodeTitle(flagPublishTitle, s.Title, flagScript),
		Description: firstNonEmpty(flagPublishSummary, s.Description),
		Script:      s.Content,
		Names:       s.Names,
		Voices:      voices,
		TTSProvider: cfg.TTSProvider,
	}
	if !flagVerbose {
		r := progress.NewBarRenderer(os.Stdout)
		defer r.Finish()
		ep.OnProgress = r.Handle
	}

	if err := publisher.Submit(ctx, ep); err != nil {
		return fmt.Errorf("record podcast: %w", err)
	}
	pub, err := publisher.Publish(ctx, *ep)
	if pub != nil {
		printPublished(cmd.OutOrStdout(), ep.Title, pub)
	}
	return err
}

// episodeTitle prefers the flag, then the script's title, then the script
// file name without its extension.
func episodeTitle(flag, scriptTitle, path string) string {
	if t := firstNonEmpty(flag, scriptTitle); t != "" {
		return t
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func printPublished(w io.Writer, title string, pub *service.Published) {
	fmt.Fprintf(w, "\nPublished: %s (id: %s)\n", title, pub.ID)

	langs := make([]string, 0, len(pub.Languages))
	for lang := range pub.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		fmt.Fprintf(w, "  %-10s %s\n", lang, pub.Languages[lang].AudioURL)
	}

	failed := make([]string, 0, len(pub.Failed))
	for lang := range pub.Failed {
		failed = append(failed, lang)
	}
	sort.Strings(failed)
	for _, lang := range failed {
		fmt.Fprintf(w, "  %-10s failed: %s\n", lang, pub.Failed[lang])
	}
}
