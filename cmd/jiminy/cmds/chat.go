package cmds

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/glazed/pkg/cmds"
	cmdlayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/jiminy/pkg/events"
	"github.com/go-go-golems/jiminy/pkg/generation"
	"github.com/go-go-golems/jiminy/pkg/generation/factory"
	"github.com/go-go-golems/jiminy/pkg/layers"
	"github.com/go-go-golems/jiminy/pkg/memory"
	"github.com/go-go-golems/jiminy/pkg/modelcheck"
	"github.com/go-go-golems/jiminy/pkg/prompts"
	"github.com/go-go-golems/jiminy/pkg/scheduler"
	"github.com/go-go-golems/jiminy/pkg/session"
	"github.com/go-go-golems/jiminy/pkg/settings"
	"github.com/go-go-golems/jiminy/pkg/telemetry"
	"github.com/go-go-golems/jiminy/pkg/tools"
	"github.com/go-go-golems/jiminy/pkg/tools/builtin"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ChatCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*ChatCommand)(nil)

type ChatCommandSettings struct {
	Prompt  string `glazed.parameter:"prompt"`
	Verbose bool   `glazed.parameter:"verbose"`
}

func NewChatCommand() (*ChatCommand, error) {
	jiminyLayers, err := layers.CreateJiminyLayers()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create jiminy parameter layers")
	}

	description := cmds.NewCommandDescription(
		"chat",
		cmds.WithShort("Chat with a model that can read and edit files in your working directory"),
		cmds.WithArguments(
			parameters.NewParameterDefinition(
				"prompt",
				parameters.ParameterTypeString,
				parameters.WithHelp("Prompt to send; read from stdin when omitted"),
				parameters.WithDefault(""),
			),
		),
		cmds.WithFlags(
			parameters.NewParameterDefinition(
				"verbose",
				parameters.ParameterTypeBool,
				parameters.WithHelp("Verbose event router logging"),
				parameters.WithDefault(false),
			),
		),
		cmds.WithLayersList(jiminyLayers...),
	)

	return &ChatCommand{
		CommandDescription: description,
	}, nil
}

func (c *ChatCommand) RunIntoWriter(ctx context.Context, parsedLayers *cmdlayers.ParsedLayers, w io.Writer) error {
	s := &ChatCommandSettings{}
	if err := parsedLayers.InitializeStruct(cmdlayers.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize chat settings")
	}

	cfg, err := settings.NewSettingsFromParsedLayers(parsedLayers)
	if err != nil {
		return errors.Wrap(err, "failed to build settings from parsed layers")
	}

	prompt, err := resolvePrompt(s.Prompt)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to determine working directory")
	}

	apiType := settings.ApiTypeGemini
	if cfg.Chat.ApiType != nil && *cfg.Chat.ApiType != "" {
		apiType = *cfg.Chat.ApiType
	}

	model := modelcheck.DefaultGeminiModel
	if cfg.Chat.Model != nil && *cfg.Chat.Model != "" {
		model = *cfg.Chat.Model
	}
	authType := modelcheck.AuthTypeOpenAICompat
	if apiType == settings.ApiTypeGemini {
		authType = modelcheck.AuthTypeGeminiAPIKey
	}
	model = modelcheck.GetEffectiveModel(ctx, modelcheck.CheckConfig{
		APIKey:   cfg.API.APIKey(apiType),
		Model:    model,
		AuthType: authType,
		BaseURL:  cfg.API.BaseURL(apiType),
	})

	generator, err := factory.NewStandardGeneratorFactory().CreateGenerator(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create content generator")
	}

	routerOptions := []events.EventRouterOption{}
	if s.Verbose {
		routerOptions = append(routerOptions, events.WithVerbose(true))
	}
	router, err := events.NewEventRouter(routerOptions...)
	if err != nil {
		return errors.Wrap(err, "failed to create event router")
	}
	defer func() {
		_ = router.Close()
	}()

	watermillSink := events.NewWatermillSink(router.Publisher, "chat")
	router.AddHandler("chat", "chat", events.PrinterFunc("", w))

	aggregator := events.NewToolEventAggregator()
	router.AddHandler("tool-summary", "chat", func(msg *message.Message) error {
		defer msg.Ack()
		ev, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		aggregator.Handle(ev)
		return nil
	})

	memoryContext, err := memory.Discover(ctx, cwd, memoryOptions(cfg.Memory)...)
	if err != nil {
		log.Warn().Err(err).Msg("context file discovery failed")
		memoryContext = &memory.Context{}
	}
	if memoryContext.FileCount > 0 {
		log.Info().
			Int("files", memoryContext.FileCount).
			Int("tokens", memoryContext.TokenCount).
			Msg("loaded hierarchical context")
	}

	registry := tools.NewInMemoryToolRegistry()
	if err := builtin.RegisterDefaults(registry); err != nil {
		return errors.Wrap(err, "failed to register builtin tools")
	}
	filterAllowedTools(registry, cfg.Tools.AllowedTools)

	toolNames := []string{}
	for _, tool := range registry.ListTools() {
		toolNames = append(toolNames, tool.Name())
	}

	systemPrompt, err := prompts.Render(prompts.NewParams(cwd, memoryContext.Content, toolNames))
	if err != nil {
		return errors.Wrap(err, "failed to render system prompt")
	}

	sessionID := uuid.NewString()
	usage := telemetry.NewUsageLogger(cfg.Telemetry, sessionID)
	usage.LogStartSession(telemetry.NewStartSessionEvent(model, cfg.Tools.ApprovalMode, registry.Count()))
	defer usage.Shutdown()

	schedulerOptions := []scheduler.Option{}
	if cfg.Tools.MaxParallelTools > 0 {
		schedulerOptions = append(schedulerOptions, scheduler.WithMaxParallel(cfg.Tools.MaxParallelTools))
	}
	sched := scheduler.NewScheduler(registry, confirmationHandler(cfg.Tools.ApprovalMode), schedulerOptions...)

	sess := session.NewSession(generator,
		session.WithSessionID(sessionID),
		session.WithModel(model),
		session.WithSystemInstruction(systemPrompt),
		session.WithToolDeclarations(tools.Declarations(registry)),
		session.WithGenerationConfig(generationConfig(cfg.Chat)),
	)
	loop := session.NewLoop(sess, sched, session.WithUsageLogger(usage))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runCtx = events.WithEventSinks(runCtx, watermillSink)

	eg := errgroup.Group{}
	eg.Go(func() error {
		defer cancel()
		return router.Run(runCtx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		return loop.Run(runCtx, prompt, nil)
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	if entries := aggregator.Entries(); len(entries) > 0 {
		failed := 0
		for _, entry := range entries {
			if entry.Failed {
				failed++
			}
			log.Debug().
				Str("tool", entry.Name).
				Str("call_id", entry.ID).
				Bool("failed", entry.Failed).
				Msg("tool call")
		}
		log.Info().Int("tool_calls", len(entries)).Int("failed", failed).Msg("session tool activity")
	}

	log.Debug().
		Str("session_id", sess.SessionID()).
		Str("model", sess.Model()).
		Int("history_entries", sess.History().Len()).
		Msg("chat finished")
	return nil
}

// resolvePrompt returns the prompt argument, falling back to piped stdin.
func resolvePrompt(arg string) (string, error) {
	if strings.TrimSpace(arg) != "" {
		return arg, nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return "", errors.New("no prompt provided; pass it as an argument or pipe it on stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errors.Wrap(err, "failed to read prompt from stdin")
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("no prompt provided; pass it as an argument or pipe it on stdin")
	}
	return prompt, nil
}

func memoryOptions(ms *settings.MemorySettings) []memory.Option {
	if ms == nil {
		return nil
	}
	options := []memory.Option{}
	if len(ms.ContextFileNames) > 0 {
		options = append(options, memory.WithFileNames(ms.ContextFileNames...))
	}
	if ms.MaxFiles > 0 {
		options = append(options, memory.WithMaxFiles(ms.MaxFiles))
	}
	if ms.MaxDepth > 0 {
		options = append(options, memory.WithMaxDepth(ms.MaxDepth))
	}
	if len(ms.IgnoreDirs) > 0 {
		options = append(options, memory.WithIgnoreDirs(ms.IgnoreDirs...))
	}
	return options
}

// filterAllowedTools drops every registered tool not named in allowed. An
// empty allow list keeps everything.
func filterAllowedTools(registry tools.ToolRegistry, allowed []string) {
	if len(allowed) == 0 {
		return
	}
	keep := map[string]struct{}{}
	for _, name := range allowed {
		keep[name] = struct{}{}
	}
	for _, tool := range registry.ListTools() {
		if _, ok := keep[tool.Name()]; !ok {
			_ = registry.UnregisterTool(tool.Name())
		}
	}
}

// confirmationHandler picks the confirmation strategy for the approval mode.
// Prompts go to stderr so piped stdout stays clean.
func confirmationHandler(approvalMode string) scheduler.ConfirmationHandler {
	switch approvalMode {
	case settings.ApprovalModeYolo:
		return scheduler.AutoApproveHandler{}
	case settings.ApprovalModeAutoEdit:
		return scheduler.AutoEditHandler{Fallback: scheduler.NewCLIHandler(os.Stdin, os.Stderr)}
	default:
		return scheduler.NewCLIHandler(os.Stdin, os.Stderr)
	}
}

func generationConfig(cs *settings.ChatSettings) generation.GenerationConfig {
	if cs == nil {
		return generation.GenerationConfig{}
	}
	return generation.GenerationConfig{
		Temperature:     cs.Temperature,
		TopP:            cs.TopP,
		MaxOutputTokens: cs.MaxOutputTokens,
		StopSequences:   cs.Stop,
	}
}
